package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	hcibrain "github.com/nbhansen/hcibrain-sub000"
)

const (
	elementsSheet = "Elements"
	summarySheet  = "Summary"
)

var elementHeader = []interface{}{
	"Element ID", "Type", "Section", "Text", "Evidence Type",
	"Confidence", "Page", "X", "Y", "Width", "Height",
}

// WriteXLSX writes the result as a two-sheet workbook: one row per
// element plus a summary sheet. Elements spanning multiple pages report
// the page and box of their first page.
func WriteXLSX(w io.Writer, res *hcibrain.ExtractionResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", elementsSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := f.SetSheetRow(elementsSheet, "A1", &elementHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, el := range res.Elements {
		row := []interface{}{
			el.ID, el.Type, el.Section, el.Text, el.EvidenceType,
			el.Confidence, el.PageNumber,
		}
		if len(el.Coordinates) > 0 {
			box := el.Coordinates[0]
			row = append(row, box.X, box.Y, box.Width, box.Height)
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(elementsSheet, cell, &row); err != nil {
			return fmt.Errorf("writing element row %d: %w", i, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("adding summary sheet: %w", err)
	}
	if err := writeSummary(f, res); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, res *hcibrain.ExtractionResult) error {
	s := res.Summary
	rows := [][]interface{}{
		{"Paper", res.Paper.Title},
		{"Paper ID", res.Paper.ID},
		{"Total elements", s.TotalElements},
		{"Average confidence", s.AverageConfidence},
		{"Chunks processed", s.ChunksProcessed},
		{"Chunks failed", s.ChunksFailed},
		{"Elements discarded", s.ElementsDiscarded},
		{"Elements unmapped", s.ElementsUnmapped},
		{"Processing time (ms)", s.ProcessingMS},
	}
	types := make([]string, 0, len(s.ElementsByType))
	for typ := range s.ElementsByType {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		rows = append(rows, []interface{}{"Elements: " + typ, s.ElementsByType[typ]})
	}

	for i := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i, err)
		}
	}
	return nil
}
