package chunker

import (
	"strings"
	"testing"
)

func TestSplitEmpty(t *testing.T) {
	c := New(Config{MaxSize: 100, Overlap: 10})
	if got := c.Split(""); got != nil {
		t.Fatalf("Split(\"\") = %v, want nil", got)
	}
}

func TestSplitSingleChunk(t *testing.T) {
	c := New(Config{MaxSize: 10000, Overlap: 200})
	text := strings.Repeat("The study examined interaction latency. ", 12) // ~500 chars

	chunks := c.Split(text)

	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(chunks))
	}
	ch := chunks[0]
	if ch.Start != 0 || ch.End != len(text) {
		t.Errorf("chunk range [%d,%d), want [0,%d)", ch.Start, ch.End, len(text))
	}
	if ch.Text != text {
		t.Error("single chunk should cover the whole text verbatim")
	}
	if ch.Index != 0 || ch.Total != 1 {
		t.Errorf("Index/Total = %d/%d, want 0/1", ch.Index, ch.Total)
	}
}

func TestSplitCoverage(t *testing.T) {
	texts := []string{
		strings.Repeat("Participants completed the task. ", 200),
		strings.Repeat("x", 5000),
		strings.Repeat("One sentence here. Another one follows.\n\nA new paragraph starts. ", 150),
	}
	configs := []Config{
		{MaxSize: 500, Overlap: 50},
		{MaxSize: 1000, Overlap: 0},
		{MaxSize: 300, Overlap: 100},
	}

	for _, text := range texts {
		for _, cfg := range configs {
			chunks := New(cfg).Split(text)
			if len(chunks) == 0 {
				t.Fatalf("cfg %+v: no chunks for %d-char text", cfg, len(text))
			}

			// Offsets invariant and verbatim text.
			for _, ch := range chunks {
				if ch.End-ch.Start != len(ch.Text) {
					t.Fatalf("cfg %+v: chunk %d range [%d,%d) does not match text length %d",
						cfg, ch.Index, ch.Start, ch.End, len(ch.Text))
				}
				if text[ch.Start:ch.End] != ch.Text {
					t.Fatalf("cfg %+v: chunk %d text is not a verbatim slice of the source", cfg, ch.Index)
				}
				if len(ch.Text) > cfg.MaxSize {
					t.Fatalf("cfg %+v: chunk %d exceeds MaxSize (%d > %d)", cfg, ch.Index, len(ch.Text), cfg.MaxSize)
				}
			}

			// No gaps: each chunk starts at or before the previous end,
			// first starts at 0, last ends at len(text).
			if chunks[0].Start != 0 {
				t.Fatalf("cfg %+v: first chunk starts at %d", cfg, chunks[0].Start)
			}
			if chunks[len(chunks)-1].End != len(text) {
				t.Fatalf("cfg %+v: last chunk ends at %d, want %d", cfg, chunks[len(chunks)-1].End, len(text))
			}
			for i := 1; i < len(chunks); i++ {
				if chunks[i].Start > chunks[i-1].End {
					t.Fatalf("cfg %+v: gap between chunk %d (end %d) and chunk %d (start %d)",
						cfg, i-1, chunks[i-1].End, i, chunks[i].Start)
				}
			}

			// Concatenation with overlaps removed reconstructs the source.
			var b strings.Builder
			prevEnd := 0
			for _, ch := range chunks {
				skip := prevEnd - ch.Start
				if skip < 0 {
					skip = 0
				}
				b.WriteString(ch.Text[skip:])
				prevEnd = ch.End
			}
			if b.String() != text {
				t.Fatalf("cfg %+v: reconstructed text differs from source", cfg)
			}
		}
	}
}

func TestSplitOverlapIdentical(t *testing.T) {
	text := strings.Repeat("The interface reduced error rates significantly. ", 100)
	chunks := New(Config{MaxSize: 600, Overlap: 120}).Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.Start >= prev.End {
			continue // overlap surrendered to guarantee progress
		}
		shared := prev.End - cur.Start
		if prev.Text[len(prev.Text)-shared:] != cur.Text[:shared] {
			t.Errorf("overlap region between chunks %d and %d is not byte-identical", i-1, i)
		}
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	sentence := "We measured completion time across twelve participants. "
	text := strings.Repeat(sentence, 40)
	chunks := New(Config{MaxSize: 500, Overlap: 0}).Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Every non-final chunk should end right after sentence punctuation,
	// since the text offers a boundary inside every tolerance window.
	for _, ch := range chunks[:len(chunks)-1] {
		if ch.Text[len(ch.Text)-1] != '.' {
			t.Errorf("chunk %d ends with %q, want a sentence boundary", ch.Index, ch.Text[len(ch.Text)-1:])
		}
	}
}

func TestSplitDefaults(t *testing.T) {
	c := New(Config{})
	if c.cfg.MaxSize != 8000 {
		t.Errorf("default MaxSize = %d, want 8000", c.cfg.MaxSize)
	}
	c = New(Config{MaxSize: 100, Overlap: 200})
	if c.cfg.Overlap >= c.cfg.MaxSize {
		t.Errorf("overlap %d not clamped below MaxSize %d", c.cfg.Overlap, c.cfg.MaxSize)
	}
}
