package hcibrain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nbhansen/hcibrain-sub000/extract"
	"github.com/nbhansen/hcibrain-sub000/locate"
)

var validElementTypes = map[string]bool{
	"goal":   true,
	"method": true,
	"result": true,
}

var validEvidenceTypes = map[string]bool{
	"quantitative": true,
	"qualitative":  true,
	"theoretical":  true,
	"mixed":        true,
	"unknown":      true,
}

// assemble turns validated raw elements into final ExtractedElements:
// it re-checks the construction invariants, assigns ids, and attaches
// bounding boxes from the mapper. A nil mapper skips coordinate lookup.
// Returns the elements and the count that could not be located.
func assemble(paperID string, raws []extract.RawElement, mapper *locate.Mapper) ([]ExtractedElement, int, error) {
	elements := make([]ExtractedElement, 0, len(raws))
	unmapped := 0

	for _, raw := range raws {
		if err := checkElement(raw); err != nil {
			return nil, 0, err
		}

		el := ExtractedElement{
			ID:           uuid.NewString(),
			PaperID:      paperID,
			Type:         raw.Type,
			Text:         raw.Text,
			Section:      raw.Section,
			Confidence:   raw.Confidence,
			EvidenceType: raw.EvidenceType,
			PageNumber:   raw.Page,
		}

		if mapper != nil {
			if boxes := mapper.Locate(raw.Text, raw.Page); len(boxes) > 0 {
				el.PageNumber = boxes[0].Page
				for _, b := range boxes {
					el.Coordinates = append(el.Coordinates, ElementCoordinates{
						PageNumber: b.Page,
						X:          b.X,
						Y:          b.Y,
						Width:      b.Width,
						Height:     b.Height,
						CharStart:  b.CharStart,
						CharEnd:    b.CharEnd,
					})
				}
			} else {
				unmapped++
			}
		}

		elements = append(elements, el)
	}
	return elements, unmapped, nil
}

// checkElement enforces the invariants every element must satisfy by the
// time it reaches assembly. A violation here is an upstream bug, reported
// as ErrInvalidElement rather than silently dropped.
func checkElement(raw extract.RawElement) error {
	if raw.Text == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidElement)
	}
	if !validElementTypes[raw.Type] {
		return fmt.Errorf("%w: unknown element type %q", ErrInvalidElement, raw.Type)
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidElement, raw.Confidence)
	}
	if !validEvidenceTypes[raw.EvidenceType] {
		return fmt.Errorf("%w: unknown evidence type %q", ErrInvalidElement, raw.EvidenceType)
	}
	if raw.End <= raw.Start {
		return fmt.Errorf("%w: degenerate span [%d, %d)", ErrInvalidElement, raw.Start, raw.End)
	}
	return nil
}

// summarize computes the result statistics over assembled elements.
func summarize(elements []ExtractedElement, stats extract.Stats, unmapped int, elapsed time.Duration) ExtractionSummary {
	s := ExtractionSummary{
		TotalElements:     len(elements),
		ElementsByType:    map[string]int{},
		ElementsBySection: map[string]int{},
		ProcessingMS:      elapsed.Milliseconds(),
		ChunksProcessed:   stats.Chunks,
		ChunksFailed:      stats.FailedChunks,
		ElementsDiscarded: stats.Discarded,
		ElementsUnmapped:  unmapped,
	}

	total := 0.0
	for _, el := range elements {
		s.ElementsByType[el.Type]++
		s.ElementsBySection[el.Section]++
		total += el.Confidence
	}
	if len(elements) > 0 {
		s.AverageConfidence = total / float64(len(elements))
	}
	return s
}
