package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/xuri/excelize/v2"

	hcibrain "github.com/nbhansen/hcibrain-sub000"
)

func sampleResult() *hcibrain.ExtractionResult {
	return &hcibrain.ExtractionResult{
		Paper: hcibrain.Paper{
			ID:    "paper-1",
			Title: "Latency and Collaboration",
		},
		Summary: hcibrain.ExtractionSummary{
			TotalElements:     2,
			ElementsByType:    map[string]int{"goal": 1, "result": 1},
			ElementsBySection: map[string]int{"introduction": 1, "results": 1},
			AverageConfidence: 0.9,
			ChunksProcessed:   3,
		},
		Elements: []hcibrain.ExtractedElement{
			{
				ID:           "el-1",
				PaperID:      "paper-1",
				Type:         "goal",
				Text:         "We aim to understand latency effects.",
				Section:      "introduction",
				Confidence:   0.85,
				EvidenceType: "unknown",
				PageNumber:   1,
				Coordinates: []hcibrain.ElementCoordinates{
					{PageNumber: 1, X: 72, Y: 640, Width: 310, Height: 12, CharStart: 40, CharEnd: 77},
				},
			},
			{
				ID:           "el-2",
				PaperID:      "paper-1",
				Type:         "result",
				Text:         "Completion time improved by 23 percent.",
				Section:      "results",
				Confidence:   0.95,
				EvidenceType: "quantitative",
				PageNumber:   2,
			},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded hcibrain.ExtractionResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Paper.ID != "paper-1" || len(decoded.Elements) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Elements[0].Coordinates[0].Y != 640 {
		t.Errorf("coordinates did not round-trip: %+v", decoded.Elements[0].Coordinates)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Elements")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2 elements", len(rows))
	}
	if rows[0][0] != "Element ID" || rows[0][3] != "Text" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "goal" || rows[1][2] != "introduction" {
		t.Errorf("first element row = %v", rows[1])
	}
	// Second element has no coordinates; its row stops at the page column.
	if len(rows[2]) > 7 {
		t.Errorf("coordinate cells present on unmapped element: %v", rows[2])
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows(Summary): %v", err)
	}
	if summary[0][1] != "Latency and Collaboration" {
		t.Errorf("summary title row = %v", summary[0])
	}
}
