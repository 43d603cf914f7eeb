// Package locate maps extracted element text back to pixel-space bounding
// boxes by searching the document's character stream, exactly first and
// fuzzily as a fallback. A Mapper is read-only after construction and safe
// for concurrent use.
package locate

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/nbhansen/hcibrain-sub000/pdfdoc"
)

// Config controls matching behaviour.
type Config struct {
	// FuzzyThreshold is the minimum similarity (0-1) for accepting a
	// fuzzy match. Default 0.85.
	FuzzyThreshold float64
	// MinFuzzyLength disables fuzzy matching for targets shorter than
	// this, where near-duplicates are too likely. Default 20.
	MinFuzzyLength int
}

// Box is one page-relative bounding box with the document-text offsets it
// was derived from. Spans crossing page boundaries produce one Box per page.
type Box struct {
	Page      int
	X         float64
	Y         float64
	Width     float64
	Height    float64
	CharStart int
	CharEnd   int
}

// Mapper locates text inside one positioned document. The normalized
// shadow text collapses whitespace and line-break hyphenation so that
// LLM-normalized element text still matches the raw extraction, while
// every normalized byte maps back to its original offset.
type Mapper struct {
	doc        *pdfdoc.Document
	cfg        Config
	norm       string
	normToOrig []int
	wordStarts []int
	params     *levenshtein.Params
}

// New builds a Mapper over doc.
func New(doc *pdfdoc.Document, cfg Config) *Mapper {
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		cfg.FuzzyThreshold = 0.85
	}
	if cfg.MinFuzzyLength <= 0 {
		cfg.MinFuzzyLength = 20
	}

	norm, mapping := normalize(doc.Text)
	m := &Mapper{
		doc:        doc,
		cfg:        cfg,
		norm:       norm,
		normToOrig: mapping,
		params:     levenshtein.NewParams(),
	}
	for i := 0; i < len(norm); i++ {
		if i == 0 || norm[i-1] == ' ' {
			m.wordStarts = append(m.wordStarts, i)
		}
	}
	return m
}

// Locate finds the text in the document and returns its bounding boxes,
// one per page touched by the span. pageHint biases the search to start
// near that page; the whole document is still searched when nothing is
// found near the hint. Returns nil when no acceptable match exists;
// absence of coordinates is an expected outcome, not an error.
func (m *Mapper) Locate(text string, pageHint int) []Box {
	target, _ := normalize(text)
	if target == "" || len(target) > len(m.norm) {
		return nil
	}

	from := 0
	if pageHint > 0 {
		from = m.normIndex(m.doc.PageStart(pageHint))
	}

	idx := m.exactIndex(target, from)
	if idx < 0 {
		idx = m.fuzzyIndex(target, from)
	}
	if idx < 0 {
		return nil
	}

	end := idx + len(target)
	if end > len(m.norm) {
		end = len(m.norm)
	}
	origStart := m.normToOrig[idx]
	origEnd := m.normToOrig[end-1] + 1
	return m.boxes(origStart, origEnd)
}

// exactIndex searches for target from the biased position first, then
// from the top of the document.
func (m *Mapper) exactIndex(target string, from int) int {
	if idx := strings.Index(m.norm[from:], target); idx >= 0 {
		return from + idx
	}
	if from > 0 {
		if idx := strings.Index(m.norm, target); idx >= 0 {
			return idx
		}
	}
	return -1
}

// fuzzyIndex slides a window of the target's length across word starts
// and accepts the best similarity score above the threshold. Positions
// near the hint are scored first and accepted outright when they clear
// the threshold, so boilerplate repeated elsewhere does not win over a
// match inside the element's own section.
func (m *Mapper) fuzzyIndex(target string, from int) int {
	if len(target) < m.cfg.MinFuzzyLength {
		return -1
	}

	if from > 0 {
		// Hint region: from the hinted page through the next one.
		regionEnd := len(m.norm)
		if page := m.doc.PageAt(m.normToOrig[min(from, len(m.normToOrig)-1)]); page > 0 {
			if next := m.doc.PageStart(page + 2); next > 0 {
				regionEnd = m.normIndex(next)
			}
		}
		if idx, score := m.bestWindow(target, from, regionEnd); score >= m.cfg.FuzzyThreshold {
			return idx
		}
	}

	idx, score := m.bestWindow(target, 0, len(m.norm))
	if score < m.cfg.FuzzyThreshold {
		return -1
	}
	return idx
}

// bestWindow scores target against every word-aligned window in
// [lo, hi) and returns the best position and its similarity.
func (m *Mapper) bestWindow(target string, lo, hi int) (int, float64) {
	bestIdx, bestScore := -1, 0.0
	for _, p := range m.wordStarts {
		if p < lo {
			continue
		}
		if p >= hi {
			break
		}
		end := p + len(target)
		if end > len(m.norm) {
			end = len(m.norm)
		}
		if (end-p)*2 < len(target) {
			break // window too short to ever clear the threshold
		}
		score := levenshtein.Similarity(m.norm[p:end], target, m.params)
		if score > bestScore {
			bestIdx, bestScore = p, score
			if score >= 0.995 {
				break
			}
		}
	}
	return bestIdx, bestScore
}

// boxes converts an original-text byte range into per-page bounding boxes
// using the document's position runs. Partially covered runs are
// interpolated horizontally by character proportion.
func (m *Mapper) boxes(origStart, origEnd int) []Box {
	runs := m.doc.RunsInRange(origStart, origEnd)
	if len(runs) == 0 {
		return nil
	}

	var out []Box
	cur := Box{Page: -1}

	flush := func() {
		if cur.Page > 0 && cur.Width > 0 && cur.Height > 0 {
			out = append(out, cur)
		}
	}

	for _, r := range runs {
		covStart := max(r.Start, origStart)
		covEnd := min(r.End, origEnd)
		if covStart >= covEnd {
			continue
		}

		span := float64(r.End - r.Start)
		x0 := r.X + r.W*float64(covStart-r.Start)/span
		x1 := r.X + r.W*float64(covEnd-r.Start)/span
		y0, y1 := r.Y, r.Y+r.H

		if r.Page != cur.Page {
			flush()
			cur = Box{Page: r.Page, X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, CharStart: covStart, CharEnd: covEnd}
			continue
		}

		if x0 < cur.X {
			cur.X = x0
		}
		if x1 > cur.X+cur.Width {
			cur.Width = x1 - cur.X
		}
		if y0 < cur.Y {
			cur.Height += cur.Y - y0
			cur.Y = y0
		}
		if y1 > cur.Y+cur.Height {
			cur.Height = y1 - cur.Y
		}
		if covEnd > cur.CharEnd {
			cur.CharEnd = covEnd
		}
	}
	flush()

	if len(out) == 0 {
		return nil
	}
	return out
}

// normIndex maps an original-text offset to the corresponding offset in
// the normalized text.
func (m *Mapper) normIndex(orig int) int {
	lo, hi := 0, len(m.normToOrig)
	for lo < hi {
		mid := (lo + hi) / 2
		if m.normToOrig[mid] < orig {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// normalize collapses whitespace runs to single spaces and joins words
// hyphenated across line breaks, returning the normalized text and a
// per-byte mapping back to original offsets.
func normalize(s string) (string, []int) {
	var b strings.Builder
	var mapping []int
	b.Grow(len(s))

	i := 0
	pendingSpace := false
	for i < len(s) {
		c := s[i]

		// Line-break hyphenation: "exam-\nple" reads "example".
		if c == '-' && i+1 < len(s) && (s[i+1] == '\n' || s[i+1] == '\r') {
			j := i + 1
			for j < len(s) && (s[j] == '\n' || s[j] == '\r' || s[j] == ' ' || s[j] == '\t') {
				j++
			}
			if j < len(s) && !isWordBreak(s[j]) {
				i = j
				continue
			}
		}

		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			if b.Len() > 0 {
				pendingSpace = true
			}
			i++
			continue
		}

		if pendingSpace {
			b.WriteByte(' ')
			mapping = append(mapping, i-1)
			pendingSpace = false
		}
		b.WriteByte(c)
		mapping = append(mapping, i)
		i++
	}

	return b.String(), mapping
}

func isWordBreak(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
