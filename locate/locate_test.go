package locate

import (
	"strings"
	"testing"

	"github.com/nbhansen/hcibrain-sub000/pdfdoc"
)

// buildDoc lays the given pages out as positioned text, one run per line,
// 10pt per character, lines stacked top-down from Y=700.
func buildDoc(pages ...[]string) *pdfdoc.Document {
	doc := &pdfdoc.Document{Path: "test.pdf"}
	var b strings.Builder
	for pi, lines := range pages {
		pageNum := pi + 1
		start := b.Len()
		y := 700.0
		for _, line := range lines {
			lineStart := b.Len()
			b.WriteString(line)
			doc.Runs = append(doc.Runs, pdfdoc.Run{
				Start: lineStart,
				End:   b.Len(),
				Page:  pageNum,
				X:     72,
				Y:     y,
				W:     float64(10 * len(line)),
				H:     12,
			})
			b.WriteString("\n")
			y -= 14
		}
		b.WriteString("\n")
		doc.Pages = append(doc.Pages, pdfdoc.Page{Number: pageNum, Start: start, End: b.Len()})
	}
	doc.Text = b.String()
	return doc
}

func TestLocateExact(t *testing.T) {
	doc := buildDoc([]string{
		"We conducted a study with twelve participants.",
		"Completion time improved by 23 percent on average.",
	})
	m := New(doc, Config{})

	boxes := m.Locate("Completion time improved by 23 percent on average.", 0)
	if len(boxes) != 1 {
		t.Fatalf("boxes = %d, want 1", len(boxes))
	}
	b := boxes[0]
	if b.Page != 1 {
		t.Errorf("Page = %d, want 1", b.Page)
	}
	if got := doc.Text[b.CharStart:b.CharEnd]; got != "Completion time improved by 23 percent on average." {
		t.Errorf("span = %q", got)
	}
	if b.X != 72 || b.Y != 686 {
		t.Errorf("origin = (%v, %v), want (72, 686)", b.X, b.Y)
	}
	if b.Height != 12 {
		t.Errorf("Height = %v, want 12", b.Height)
	}
}

func TestLocateNormalizesWhitespaceAndHyphenation(t *testing.T) {
	doc := buildDoc([]string{
		"The results show that partici-",
		"pants preferred the low-latency condition overall.",
	})
	m := New(doc, Config{})

	boxes := m.Locate("participants preferred the low-latency condition", 0)
	if len(boxes) != 1 {
		t.Fatalf("boxes = %d, want 1", len(boxes))
	}
	b := boxes[0]
	// Span starts on the hyphenated first line and ends on the second.
	if !strings.HasPrefix(doc.Text[b.CharStart:], "partici-") {
		t.Errorf("span start = %q", doc.Text[b.CharStart:b.CharStart+10])
	}
	if !strings.HasSuffix(doc.Text[:b.CharEnd], "condition") {
		t.Errorf("span end = %q", doc.Text[b.CharEnd-10:b.CharEnd])
	}
}

func TestLocateFuzzy(t *testing.T) {
	doc := buildDoc([]string{
		"Participants completed three collaborative editing tasks",
		"under varying simulated network latency conditions.",
	})
	m := New(doc, Config{})

	// Lightly paraphrased: small edits, well under 15% distance.
	boxes := m.Locate("Participants performed three collaborative editing tasks under varying simulated network latency conditions", 0)
	if len(boxes) == 0 {
		t.Fatal("expected a fuzzy match, got none")
	}

	// Heavily divergent text must not match.
	boxes = m.Locate("A completely unrelated sentence about quantum chromodynamics and lattice gauge theory results", 0)
	if boxes != nil {
		t.Fatalf("expected no match, got %d boxes", len(boxes))
	}
}

func TestLocateMultiPageSpan(t *testing.T) {
	doc := buildDoc(
		[]string{"The study concludes that latency shapes"},
		[]string{"collaboration quality in measurable ways."},
	)
	m := New(doc, Config{})

	boxes := m.Locate("latency shapes collaboration quality", 0)
	if len(boxes) != 2 {
		t.Fatalf("boxes = %d, want 2 (one per page)", len(boxes))
	}
	if boxes[0].Page != 1 || boxes[1].Page != 2 {
		t.Errorf("pages = %d, %d, want 1, 2", boxes[0].Page, boxes[1].Page)
	}
	for _, b := range boxes {
		if b.Width <= 0 || b.Height <= 0 {
			t.Errorf("page %d: degenerate box %+v", b.Page, b)
		}
	}
}

func TestLocatePageHintBias(t *testing.T) {
	repeated := "This sentence appears on more than one page of the paper."
	doc := buildDoc(
		[]string{repeated, "First page filler text goes here."},
		[]string{"Second page filler text goes here.", repeated},
	)
	m := New(doc, Config{})

	boxes := m.Locate(repeated, 2)
	if len(boxes) != 1 {
		t.Fatalf("boxes = %d, want 1", len(boxes))
	}
	if boxes[0].Page != 2 {
		t.Errorf("Page = %d, want hint-biased 2", boxes[0].Page)
	}

	boxes = m.Locate(repeated, 0)
	if len(boxes) != 1 || boxes[0].Page != 1 {
		t.Errorf("unhinted match on page %d, want 1", boxes[0].Page)
	}
}

func TestLocateNoMatch(t *testing.T) {
	doc := buildDoc([]string{"Short document."})
	m := New(doc, Config{})

	if boxes := m.Locate("text that is longer than the whole document body", 0); boxes != nil {
		t.Fatalf("expected nil, got %v", boxes)
	}
	if boxes := m.Locate("", 0); boxes != nil {
		t.Fatalf("empty target: expected nil, got %v", boxes)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse runs", "a  b\n\nc\td", "a b c d"},
		{"hyphen join", "exam-\nple text", "example text"},
		{"hyphen kept before space", "a well- known fact", "a well- known fact"},
		{"leading trailing", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mapping := normalize(tt.in)
			if got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if len(mapping) != len(got) {
				t.Errorf("mapping length %d != text length %d", len(mapping), len(got))
			}
		})
	}
}
