// Package chunker splits long section text into overlapping windows sized
// for a single LLM context, preserving byte offsets into the source so
// extracted spans can be mapped back to the original document.
package chunker

import (
	"unicode/utf8"
)

// Chunk is a bounded substring of a section prepared for one LLM call.
// Start and End are byte offsets into the parent text, so
// End-Start == len(Text) always holds.
type Chunk struct {
	Text  string
	Start int
	End   int
	Index int
	Total int
}

// Config controls the chunking behaviour.
type Config struct {
	MaxSize int // Maximum characters per chunk.
	Overlap int // Characters shared by consecutive chunks.
}

// Chunker cuts text into overlapping chunks at sentence-friendly boundaries.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration. A non-positive
// MaxSize falls back to 8000 characters; an Overlap outside [0, MaxSize)
// is clamped so the windows always make forward progress.
func New(cfg Config) *Chunker {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 8000
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.MaxSize {
		cfg.Overlap = cfg.MaxSize / 8
	}
	return &Chunker{cfg: cfg}
}

// Split cuts text into chunks of at most MaxSize bytes. Consecutive chunks
// share an Overlap-sized region so an element spanning a cut point is still
// seen whole by at least one chunk. Every byte of text appears in at least
// one chunk. Empty input yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	n := len(text)
	if n == 0 {
		return nil
	}
	if n <= c.cfg.MaxSize {
		return []Chunk{{Text: text, Start: 0, End: n, Index: 0, Total: 1}}
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + c.cfg.MaxSize
		if end >= n {
			end = n
		} else {
			end = cutPoint(text, start, end)
		}
		chunks = append(chunks, Chunk{Text: text[start:end], Start: start, End: end})
		if end == n {
			break
		}

		next := end - c.cfg.Overlap
		if next <= start {
			// Overlap would stall the window; give up the overlap for
			// this boundary rather than loop forever.
			next = end
		}
		for next < n && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// cutPoint picks the best position to end a chunk that nominally runs
// [start, limit). It prefers the latest paragraph break, then the latest
// sentence end, within a tolerance window before limit; failing both it
// cuts at limit aligned to a rune boundary.
func cutPoint(text string, start, limit int) int {
	tolerance := (limit - start) / 5
	floor := limit - tolerance
	if floor < start+1 {
		floor = start + 1
	}

	// Paragraph break: cut just after the blank line.
	for i := limit - 1; i >= floor; i-- {
		if text[i] == '\n' && text[i-1] == '\n' {
			return i + 1
		}
	}

	// Sentence end: punctuation followed by whitespace.
	for i := limit - 2; i >= floor; i-- {
		if isSentenceEnd(text[i]) && isSpace(text[i+1]) {
			return i + 1
		}
	}

	cut := limit
	for cut > start && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
