package hcibrain

// Paper holds identity and bibliographic metadata for one source document.
// Created once at ingestion and never mutated.
type Paper struct {
	ID         string   `json:"paper_id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Venue      string   `json:"venue,omitempty"`
	Year       int      `json:"year,omitempty"`
	DOI        string   `json:"doi,omitempty"`
	SourcePath string   `json:"source_path,omitempty"`
}

// ElementCoordinates is a page-relative bounding box for one element,
// expressed in PDF user space (origin bottom-left, y increasing upward,
// y at the text baseline). CharStart/CharEnd are the offsets into the
// document's extracted text that the box was derived from.
type ElementCoordinates struct {
	PageNumber int     `json:"page_number"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	CharStart  int     `json:"char_start"`
	CharEnd    int     `json:"char_end"`
}

// ExtractedElement is one classified snippet of verbatim text. The text is
// guaranteed to be an exact substring of the source document. Coordinates
// is nil when the element could not be located for highlighting; the
// element is still part of the result. A span crossing a page boundary
// carries one box per page.
type ExtractedElement struct {
	ID           string               `json:"element_id"`
	PaperID      string               `json:"paper_id"`
	Type         string               `json:"element_type"`
	Text         string               `json:"text"`
	Section      string               `json:"section"`
	Confidence   float64              `json:"confidence"`
	EvidenceType string               `json:"evidence_type"`
	PageNumber   int                  `json:"page_number,omitempty"`
	Coordinates  []ElementCoordinates `json:"coordinates"`
}

// ExtractionSummary aggregates statistics for one processed document,
// including an account of dropped or degraded work.
type ExtractionSummary struct {
	TotalElements     int            `json:"total_elements"`
	ElementsByType    map[string]int `json:"elements_by_type"`
	ElementsBySection map[string]int `json:"elements_by_section"`
	AverageConfidence float64        `json:"average_confidence"`
	ProcessingMS      int64          `json:"processing_ms"`
	ChunksProcessed   int            `json:"chunks_processed"`
	ChunksFailed      int            `json:"chunks_failed"`
	ElementsDiscarded int            `json:"elements_discarded"`
	ElementsUnmapped  int            `json:"elements_unmapped"`
}

// ExtractionResult is the terminal artifact of the pipeline: one paper,
// its positioned elements, and summary statistics.
type ExtractionResult struct {
	Paper    Paper              `json:"paper"`
	Summary  ExtractionSummary  `json:"extraction_summary"`
	Elements []ExtractedElement `json:"extracted_elements"`
}
