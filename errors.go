package hcibrain

import "errors"

var (
	// ErrEmptyDocument is returned when a PDF yields no extractable text.
	ErrEmptyDocument = errors.New("hcibrain: document contains no extractable text")

	// ErrNoSections is returned when no sections could be detected in the
	// document text. No partial result is fabricated in this case.
	ErrNoSections = errors.New("hcibrain: no sections detected in document")

	// ErrParsingFailed is returned when the PDF layer cannot read the file.
	ErrParsingFailed = errors.New("hcibrain: PDF parsing failed")

	// ErrLLMUnavailable is returned when the LLM provider is unreachable.
	ErrLLMUnavailable = errors.New("hcibrain: LLM provider unavailable")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("hcibrain: invalid configuration")

	// ErrInvalidElement indicates that an element violating construction
	// invariants reached the assembler. This is a bug upstream, not a
	// runtime condition to recover from.
	ErrInvalidElement = errors.New("hcibrain: invalid element")
)
