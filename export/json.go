// Package export renders an ExtractionResult in the formats downstream
// tools consume: indented JSON and an XLSX workbook.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	hcibrain "github.com/nbhansen/hcibrain-sub000"
)

// WriteJSON writes the result as indented JSON.
func WriteJSON(w io.Writer, res *hcibrain.ExtractionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
