// Package hcibrain extracts positioned research content from academic
// PDFs: goals, methods, and results as verbatim quotes of the source
// text, each carrying the bounding boxes needed to highlight it in a
// viewer. The pipeline is PDF text extraction, section detection,
// chunked LLM extraction, and coordinate mapping.
package hcibrain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nbhansen/hcibrain-sub000/extract"
	"github.com/nbhansen/hcibrain-sub000/llm"
	"github.com/nbhansen/hcibrain-sub000/locate"
	"github.com/nbhansen/hcibrain-sub000/pdfdoc"
)

// Engine runs the extraction pipeline over one document at a time.
// Implementations are safe for concurrent use.
type Engine interface {
	// ExtractFile loads a PDF from disk and extracts its elements.
	ExtractFile(ctx context.Context, path string, opts ...Option) (*ExtractionResult, error)

	// ExtractDocument extracts elements from an already-loaded document.
	ExtractDocument(ctx context.Context, doc *pdfdoc.Document, opts ...Option) (*ExtractionResult, error)
}

// Option customizes a single extraction call.
type Option func(*callOptions)

type callOptions struct {
	paper Paper
}

// WithPaper supplies bibliographic metadata for the document being
// processed. Missing fields are filled in from the document itself.
func WithPaper(p Paper) Option {
	return func(o *callOptions) { o.paper = p }
}

type engine struct {
	cfg  Config
	orch *extract.Orchestrator
}

// New builds an Engine from configuration, constructing the LLM provider
// named in cfg.LLM.
func New(cfg Config) (Engine, error) {
	provider, err := llm.NewProvider(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("building provider: %w", err)
	}
	return NewWithProvider(cfg, provider)
}

// NewWithProvider builds an Engine around an existing provider. Used by
// tests and by callers that construct providers themselves.
func NewWithProvider(cfg Config, provider llm.Provider) (Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &engine{
		cfg: cfg,
		orch: extract.New(provider, cfg.LLM.Model, extract.Config{
			MaxChunkSize: cfg.MaxChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			Concurrency:  cfg.Concurrency,
			CallTimeout:  time.Duration(cfg.CallTimeoutSeconds) * time.Second,
			Retry: extract.RetryPolicy{
				MaxAttempts: cfg.MaxAttempts,
				BaseDelay:   time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
				MaxDelay:    time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond,
				Multiplier:  cfg.RetryMultiplier,
			},
			DedupOverlap: cfg.DedupOverlap,
			Temperature:  cfg.Temperature,
		}),
	}, nil
}

func (e *engine) ExtractFile(ctx context.Context, path string, opts ...Option) (*ExtractionResult, error) {
	doc, err := pdfdoc.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return e.ExtractDocument(ctx, doc, opts...)
}

func (e *engine) ExtractDocument(ctx context.Context, doc *pdfdoc.Document, opts ...Option) (*ExtractionResult, error) {
	start := time.Now()

	var call callOptions
	for _, opt := range opts {
		opt(&call)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrEmptyDocument
	}

	sections := pdfdoc.Detect(doc)
	if len(sections) == 0 {
		return nil, ErrNoSections
	}

	paper := call.paper
	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	if paper.Title == "" {
		paper.Title = guessTitle(doc.Text)
	}
	if paper.SourcePath == "" {
		paper.SourcePath = doc.Path
	}

	skip := make(map[string]bool, len(e.cfg.SkipSections))
	for _, s := range e.cfg.SkipSections {
		skip[strings.ToLower(s)] = true
	}

	var inputs []extract.SectionInput
	for _, sec := range sections {
		if skip[sec.Type] {
			continue
		}
		inputs = append(inputs, extract.SectionInput{
			Type:       sec.Type,
			Text:       sec.Text,
			Start:      sec.Start,
			Page:       sec.StartPage,
			PaperTitle: paper.Title,
		})
	}

	slog.Info("extracting document",
		"paper_id", paper.ID,
		"pages", doc.PageCount(),
		"sections", len(inputs),
		"skipped_sections", len(sections)-len(inputs))

	raws, stats, err := e.orch.ProcessPaper(ctx, inputs)
	if err != nil {
		if errors.Is(err, extract.ErrAllChunksFailed) {
			return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
		}
		return nil, fmt.Errorf("extracting elements: %w", err)
	}

	mapper := locate.New(doc, locate.Config{FuzzyThreshold: e.cfg.FuzzyThreshold})
	elements, unmapped, err := assemble(paper.ID, raws, mapper)
	if err != nil {
		return nil, err
	}

	summary := summarize(elements, stats, unmapped, time.Since(start))
	slog.Info("extraction complete",
		"paper_id", paper.ID,
		"elements", summary.TotalElements,
		"chunks_failed", summary.ChunksFailed,
		"unmapped", summary.ElementsUnmapped,
		"elapsed_ms", summary.ProcessingMS)

	return &ExtractionResult{
		Paper:    paper,
		Summary:  summary,
		Elements: elements,
	}, nil
}

// guessTitle takes the first non-empty line of the document as the title
// when no metadata was supplied. Long lines are truncated at a word break.
func guessTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 200 {
			if cut := strings.LastIndex(line[:200], " "); cut > 0 {
				line = line[:cut]
			} else {
				line = line[:200]
			}
		}
		return line
	}
	return ""
}
