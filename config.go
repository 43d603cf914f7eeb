package hcibrain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the HCIBrain extraction engine.
type Config struct {
	// LLM configures the chat provider used for element extraction.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Chunking
	MaxChunkSize int `json:"max_chunk_size" yaml:"max_chunk_size"` // characters per chunk (default 8000)
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`   // characters shared by adjacent chunks (default 400)

	// Concurrency bounds the number of in-flight LLM calls across all
	// sections of a paper (default 3).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Retry policy for per-chunk LLM calls.
	MaxAttempts        int     `json:"max_attempts" yaml:"max_attempts"`                 // default 3
	RetryBaseDelayMS   int     `json:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`   // default 1000
	RetryMaxDelayMS    int     `json:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`     // default 30000
	RetryMultiplier    float64 `json:"retry_multiplier" yaml:"retry_multiplier"`         // default 2.0
	CallTimeoutSeconds int     `json:"call_timeout_seconds" yaml:"call_timeout_seconds"` // default 60

	// Matching thresholds. Empirically chosen defaults; tune against a
	// regression corpus rather than assuming they are optimal.
	FuzzyThreshold float64 `json:"fuzzy_threshold" yaml:"fuzzy_threshold"` // default 0.85
	DedupOverlap   float64 `json:"dedup_overlap" yaml:"dedup_overlap"`     // default 0.5

	// Temperature for extraction calls (default 0 for determinism).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// SkipSections lists detected section types to exclude from extraction.
	// Defaults to references and acknowledgments, which carry no original
	// research content.
	SkipSections []string `json:"skip_sections" yaml:"skip_sections"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, lmstudio, openai, openrouter, groq, xai, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		MaxChunkSize:       8000,
		ChunkOverlap:       400,
		Concurrency:        3,
		MaxAttempts:        3,
		RetryBaseDelayMS:   1000,
		RetryMaxDelayMS:    30000,
		RetryMultiplier:    2.0,
		CallTimeoutSeconds: 60,
		FuzzyThreshold:     0.85,
		DedupOverlap:       0.5,
		SkipSections:       []string{"references", "acknowledgments"},
	}
}

// LoadConfig reads a YAML configuration file and overlays it on the
// defaults, so partial files only need to name the fields they change.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// validate checks configuration invariants before the engine starts.
func (c Config) validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max_chunk_size must be positive", ErrInvalidConfig)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.MaxChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, max_chunk_size)", ErrInvalidConfig)
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: fuzzy_threshold must be in (0, 1]", ErrInvalidConfig)
	}
	if c.DedupOverlap <= 0 || c.DedupOverlap > 1 {
		return fmt.Errorf("%w: dedup_overlap must be in (0, 1]", ErrInvalidConfig)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive", ErrInvalidConfig)
	}
	return nil
}
