// Package pdfdoc reads a PDF into page text plus a character-position
// index mapping byte offsets of the extracted text to pixel-space boxes
// in PDF user space. The index is built once at ingestion, is immutable
// for the lifetime of an extraction job, and may be read concurrently.
package pdfdoc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// rowTolerance is the Y distance (in points) within which glyph fragments
// are considered to sit on the same text line.
const rowTolerance = 3.0

// wordSpaceMultiplier of the font size is the horizontal gap that implies
// a word boundary between adjacent fragments.
const wordSpaceMultiplier = 0.3

// Run is a compressed character-position entry: a contiguous span of the
// document text whose glyphs share one line on one page. Start/End are
// byte offsets into Document.Text; X/Y/W/H describe the span's box in
// PDF user space, with Y at the text baseline.
type Run struct {
	Start int
	End   int
	Page  int
	X     float64
	Y     float64
	W     float64
	H     float64
}

// Page records where one PDF page's text sits inside Document.Text.
type Page struct {
	Number int
	Start  int
	End    int
}

// Document is the read-only product of PDF ingestion: the full extracted
// text, per-page offset ranges, and the position run index sorted by
// Start. Never mutated after Load returns.
type Document struct {
	Path  string
	Text  string
	Pages []Page
	Runs  []Run
}

// Load reads the PDF at path and builds the positioned document.
func Load(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	doc := &Document{Path: path}
	var b strings.Builder

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		start := b.Len()
		appendPage(&b, doc, page.Content().Text, i)
		if b.Len() == start {
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Start: start, End: b.Len()})
		b.WriteString("\n")
	}

	doc.Text = b.String()
	return doc, nil
}

// appendPage writes one page's fragments to b in reading order and records
// their position runs. Fragments are grouped into rows by Y, rows are
// ordered top to bottom (PDF Y grows upward), and fragments within a row
// left to right.
func appendPage(b *strings.Builder, doc *Document, texts []pdf.Text, pageNum int) {
	if len(texts) == 0 {
		return
	}

	frags := make([]pdf.Text, len(texts))
	copy(frags, texts)
	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Y != frags[j].Y {
			return frags[i].Y > frags[j].Y
		}
		return frags[i].X < frags[j].X
	})

	rowY := frags[0].Y
	var prev *pdf.Text
	wrote := false

	for fi := range frags {
		frag := &frags[fi]
		if frag.S == "" {
			continue
		}

		if wrote && rowY-frag.Y > rowTolerance {
			b.WriteString("\n")
			rowY = frag.Y
			prev = nil
		} else if !wrote {
			rowY = frag.Y
		}

		if prev != nil {
			gap := frag.X - (prev.X + prev.W)
			if gap > wordSpaceMultiplier*prev.FontSize {
				b.WriteString(" ")
			}
		}

		start := b.Len()
		b.WriteString(frag.S)
		doc.addRun(Run{
			Start: start,
			End:   b.Len(),
			Page:  pageNum,
			X:     frag.X,
			Y:     frag.Y,
			W:     frag.W,
			H:     frag.FontSize,
		})

		prev = frag
		wrote = true
	}
	if wrote {
		b.WriteString("\n")
	}
}

// addRun appends a run, merging it into the previous one when both sit on
// the same line of the same page and their text is contiguous. This keeps
// the index compact for documents stored glyph-by-glyph.
func (d *Document) addRun(r Run) {
	if n := len(d.Runs); n > 0 {
		last := &d.Runs[n-1]
		sameLine := last.Page == r.Page && last.End == r.Start &&
			r.Y-last.Y <= rowTolerance && last.Y-r.Y <= rowTolerance
		if sameLine {
			last.End = r.End
			if w := r.X + r.W - last.X; w > last.W {
				last.W = w
			}
			if r.H > last.H {
				last.H = r.H
			}
			return
		}
	}
	d.Runs = append(d.Runs, r)
}

// RunsInRange returns the runs overlapping the byte range [start, end).
func (d *Document) RunsInRange(start, end int) []Run {
	if start >= end {
		return nil
	}
	i := sort.Search(len(d.Runs), func(i int) bool {
		return d.Runs[i].End > start
	})
	var out []Run
	for ; i < len(d.Runs) && d.Runs[i].Start < end; i++ {
		out = append(out, d.Runs[i])
	}
	return out
}

// PageAt returns the page number containing the byte offset, or 0 when
// the offset falls between pages.
func (d *Document) PageAt(offset int) int {
	i := sort.Search(len(d.Pages), func(i int) bool {
		return d.Pages[i].End > offset
	})
	if i < len(d.Pages) && d.Pages[i].Start <= offset {
		return d.Pages[i].Number
	}
	return 0
}

// PageStart returns the text offset where the given page (or the first
// page after it, if it produced no text) begins. Returns 0 for pages
// before the document or when no page qualifies.
func (d *Document) PageStart(page int) int {
	for _, p := range d.Pages {
		if p.Number >= page {
			return p.Start
		}
	}
	return 0
}

// PageCount returns the number of pages that produced text.
func (d *Document) PageCount() int {
	return len(d.Pages)
}
