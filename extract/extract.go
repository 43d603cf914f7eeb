// Package extract runs LLM extraction over section text: it chunks each
// section, sends chunks to the model concurrently, parses the JSON-mode
// responses through the recovery layer, and validates every returned
// element against the source text before anything leaves the package.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nbhansen/hcibrain-sub000/chunker"
	"github.com/nbhansen/hcibrain-sub000/llm"
	"github.com/nbhansen/hcibrain-sub000/recovery"
)

// ErrAllChunksFailed reports that no chunk of a paper produced a usable
// response. Individual chunk failures are absorbed; this fires only when
// every single call failed.
var ErrAllChunksFailed = errors.New("extract: all chunks failed")

const extractionPrompt = `You are analyzing a section of an academic paper. Extract the research goals, methods, and results stated in the text below.

Return ONLY a JSON object in this exact format:
{
  "elements": [
    {
      "element_type": "goal|method|result",
      "text": "exact verbatim quote from the text",
      "evidence_type": "quantitative|qualitative|theoretical|mixed|unknown",
      "confidence": 0.9
    }
  ]
}

Rules:
- "text" MUST be copied verbatim from the section text, character for character. Do not paraphrase, shorten, or fix typos.
- element_type: "goal" for research aims and questions, "method" for how the study was conducted, "result" for findings and outcomes.
- evidence_type: how a result is supported; use "unknown" when unclear.
- confidence: your certainty from 0.0 to 1.0.
- Return {"elements": []} if the text contains none.

Paper: %s
Section: %s

Text:
%s`

// SectionInput is one section to process: its canonical type, verbatim
// text, the text's offset in the full document, and the page the section
// starts on. PaperTitle gives the model document-level context alongside
// the section.
type SectionInput struct {
	Type       string
	Text       string
	Start      int
	Page       int
	PaperTitle string
}

// RawElement is a validated element before coordinate mapping and
// assembly. Start and End are document-level offsets of the verbatim
// span; Page carries the section's start page as a location hint.
type RawElement struct {
	Type         string
	Text         string
	Section      string
	EvidenceType string
	Confidence   float64
	Start        int
	End          int
	Page         int

	// clipped marks spans that touch an interior chunk boundary, where
	// the model may have seen a truncated sentence.
	clipped bool
}

// Stats aggregates what happened across one extraction run.
type Stats struct {
	Chunks       int
	FailedChunks int
	Recovered    int
	Discarded    int
}

func (s *Stats) add(o Stats) {
	s.Chunks += o.Chunks
	s.FailedChunks += o.FailedChunks
	s.Recovered += o.Recovered
	s.Discarded += o.Discarded
}

// Config controls orchestration.
type Config struct {
	MaxChunkSize int
	ChunkOverlap int
	Concurrency  int
	CallTimeout  time.Duration
	Retry        RetryPolicy
	// DedupOverlap is the span-overlap fraction above which two
	// same-type elements are considered duplicates. Default 0.5.
	DedupOverlap float64
	Temperature  float64
}

// Orchestrator fans section chunks out to the LLM and collects validated
// elements. Safe for concurrent use.
type Orchestrator struct {
	provider llm.Provider
	model    string
	cfg      Config
	splitter *chunker.Chunker
}

// New creates an Orchestrator. Zero config fields get working defaults.
func New(provider llm.Provider, model string, cfg Config) *Orchestrator {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = 8000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.DedupOverlap <= 0 || cfg.DedupOverlap > 1 {
		cfg.DedupOverlap = 0.5
	}
	return &Orchestrator{
		provider: provider,
		model:    model,
		cfg:      cfg,
		splitter: chunker.New(chunker.Config{MaxSize: cfg.MaxChunkSize, Overlap: cfg.ChunkOverlap}),
	}
}

// ProcessPaper extracts elements from all sections with one shared
// concurrency budget. Chunk failures are logged and counted, never
// propagated; the only error is ErrAllChunksFailed when nothing at all
// succeeded. Results are deduplicated and sorted by document offset.
func (o *Orchestrator) ProcessPaper(ctx context.Context, sections []SectionInput) ([]RawElement, Stats, error) {
	type task struct {
		sec   SectionInput
		chunk chunker.Chunk
	}
	var tasks []task
	for _, sec := range sections {
		for _, ch := range o.splitter.Split(sec.Text) {
			tasks = append(tasks, task{sec: sec, chunk: ch})
		}
	}
	if len(tasks) == 0 {
		return nil, Stats{}, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		elements []RawElement
		stats    Stats
		lastErr  error
	)
	stats.Chunks = len(tasks)
	sem := make(chan struct{}, o.cfg.Concurrency)

	for _, t := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(t task) {
			defer wg.Done()
			defer func() { <-sem }()

			els, st, err := o.processChunk(ctx, t.sec, t.chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.FailedChunks++
				lastErr = err
				slog.Warn("chunk failed",
					"section", t.sec.Type,
					"chunk", t.chunk.Index,
					"error", err)
				return
			}
			stats.add(st)
			elements = append(elements, els...)
		}(t)
	}
	wg.Wait()

	if stats.FailedChunks == stats.Chunks {
		return nil, stats, fmt.Errorf("%w: %d chunks, last error: %v", ErrAllChunksFailed, stats.Chunks, lastErr)
	}

	elements, dropped := dedupe(elements, o.cfg.DedupOverlap)
	stats.Discarded += dropped
	sort.SliceStable(elements, func(i, j int) bool {
		if elements[i].Start != elements[j].Start {
			return elements[i].Start < elements[j].Start
		}
		return elements[i].End < elements[j].End
	})
	return elements, stats, nil
}

// ProcessSection extracts elements from a single section. Used by
// callers that manage their own section loop.
func (o *Orchestrator) ProcessSection(ctx context.Context, sec SectionInput) ([]RawElement, Stats, error) {
	return o.ProcessPaper(ctx, []SectionInput{sec})
}

// processChunk runs one LLM call with timeout and retry, parses and
// validates the response, and returns the surviving elements.
func (o *Orchestrator) processChunk(ctx context.Context, sec SectionInput, chunk chunker.Chunk) ([]RawElement, Stats, error) {
	prompt := fmt.Sprintf(extractionPrompt, sec.PaperTitle, sec.Type, chunk.Text)

	var content string
	var recovered bool
	err := o.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()

		resp, err := o.provider.Chat(callCtx, llm.ChatRequest{
			Model:          o.model,
			Messages:       []llm.Message{{Role: "user", Content: prompt}},
			Temperature:    o.cfg.Temperature,
			ResponseFormat: "json_object",
		})
		if err != nil {
			return fmt.Errorf("llm call: %w", err)
		}

		res := recovery.Parse(resp.Content)
		if res.Err != nil {
			return fmt.Errorf("parse response: %w", res.Err)
		}
		content = string(res.Data)
		recovered = res.Recovered
		if recovered {
			slog.Debug("response recovered",
				"section", sec.Type,
				"chunk", chunk.Index,
				"strategy", res.Strategy)
		}
		return nil
	})
	if err != nil {
		return nil, Stats{}, err
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		// Recovery produced valid JSON of the wrong shape.
		return nil, Stats{}, fmt.Errorf("decode elements: %w", err)
	}

	var stats Stats
	if recovered {
		stats.Recovered++
	}

	var out []RawElement
	for _, w := range wire.Elements {
		el, ok := o.validate(w, sec, chunk)
		if !ok {
			stats.Discarded++
			continue
		}
		out = append(out, el)
	}
	return out, stats, nil
}

type wireResponse struct {
	Elements []wireElement `json:"elements"`
}

type wireElement struct {
	ElementType  string  `json:"element_type"`
	Text         string  `json:"text"`
	EvidenceType string  `json:"evidence_type"`
	Confidence   float64 `json:"confidence"`
}

// validate enforces the element invariants: a known type, confidence in
// [0,1], and text that appears verbatim in the chunk. Anything else is
// dropped rather than patched.
func (o *Orchestrator) validate(w wireElement, sec SectionInput, chunk chunker.Chunk) (RawElement, bool) {
	text := strings.TrimSpace(w.Text)
	if text == "" {
		return RawElement{}, false
	}

	typ, ok := normalizeType(w.ElementType)
	if !ok {
		slog.Debug("discarding element with unknown type", "type", w.ElementType)
		return RawElement{}, false
	}
	if w.Confidence < 0 || w.Confidence > 1 {
		slog.Debug("discarding element with out-of-range confidence", "confidence", w.Confidence)
		return RawElement{}, false
	}

	idx := strings.Index(chunk.Text, text)
	if idx < 0 {
		slog.Debug("discarding non-verbatim element", "section", sec.Type, "text_prefix", prefix(text, 60))
		return RawElement{}, false
	}

	start := sec.Start + chunk.Start + idx
	end := start + len(text)
	return RawElement{
		Type:         typ,
		Text:         text,
		Section:      sec.Type,
		EvidenceType: normalizeEvidence(w.EvidenceType),
		Confidence:   w.Confidence,
		Start:        start,
		End:          end,
		Page:         sec.Page,
		clipped:      clipped(idx, idx+len(text), chunk),
	}, true
}

// clipped reports whether the span touches a chunk edge that is interior
// to the section, where truncation is possible.
func clipped(lo, hi int, chunk chunker.Chunk) bool {
	if lo == 0 && chunk.Index > 0 {
		return true
	}
	if hi == len(chunk.Text) && chunk.Index < chunk.Total-1 {
		return true
	}
	return false
}

// normalizeType maps model vocabulary onto the three canonical element
// types. Models use close synonyms freely regardless of the prompt.
func normalizeType(t string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "goal", "aim", "objective", "research_question":
		return "goal", true
	case "method", "approach", "methodology":
		return "method", true
	case "result", "finding", "outcome":
		return "result", true
	default:
		return "", false
	}
}

func normalizeEvidence(e string) string {
	switch strings.ToLower(strings.TrimSpace(e)) {
	case "quantitative", "qualitative", "theoretical", "mixed":
		return strings.ToLower(strings.TrimSpace(e))
	default:
		return "unknown"
	}
}

// dedupe removes same-type elements that are duplicates of one another:
// spans overlapping by more than maxOverlap of the shorter span, or
// identical text after case and whitespace folding. The second criterion
// catches the same sentence reported from two overlapping chunks whose
// verbatim lookups resolved to different occurrences. The
// higher-confidence copy is kept; on a tie the span not clipped at a
// chunk boundary wins.
func dedupe(elements []RawElement, maxOverlap float64) ([]RawElement, int) {
	if len(elements) < 2 {
		return elements, 0
	}

	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].Start < elements[j].Start
	})

	dropped := 0
	out := make([]RawElement, 0, len(elements))
	for _, el := range elements {
		drop := false
		for i, kept := range out {
			if kept.Type != el.Type {
				continue
			}
			if !overlaps(kept, el, maxOverlap) && normText(kept.Text) != normText(el.Text) {
				continue
			}
			if better(el, kept) {
				out[i] = el
			}
			drop = true
			dropped++
			break
		}
		if !drop {
			out = append(out, el)
		}
	}
	return out, dropped
}

// normText folds case and whitespace for duplicate comparison.
func normText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func overlaps(a, b RawElement, maxOverlap float64) bool {
	lo := max(a.Start, b.Start)
	hi := min(a.End, b.End)
	if hi <= lo {
		return false
	}
	shorter := min(a.End-a.Start, b.End-b.Start)
	if shorter == 0 {
		return false
	}
	return float64(hi-lo)/float64(shorter) > maxOverlap
}

func better(a, b RawElement) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return !a.clipped && b.clipped
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
