package llm

import "context"

// ollamaProvider implements Provider for Ollama via its OpenAI-compatible
// endpoint.
type ollamaProvider struct {
	base openAICompatClient
}

// NewOllama creates a provider for Ollama.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &ollamaProvider{base: newOpenAICompatClient(cfg)}
}

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

// lmStudioProvider implements Provider for LM Studio.
// LM Studio exposes an OpenAI-compatible API.
type lmStudioProvider struct {
	base openAICompatClient
}

// NewLMStudio creates a provider for LM Studio.
func NewLMStudio(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:1234"
	}
	return &lmStudioProvider{base: newOpenAICompatClient(cfg)}
}

func (p *lmStudioProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

// openAIProvider implements Provider for the OpenAI API.
//
// API key: set via config, OPENAI_API_KEY env var, or the server's
// HCIBRAIN_LLM_API_KEY env var.
type openAIProvider struct {
	base openAICompatClient
}

// NewOpenAI creates a provider for OpenAI.
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	return &openAIProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

// openRouterProvider implements Provider for OpenRouter.
// OpenRouter uses the OpenAI-compatible API format.
type openRouterProvider struct {
	base openAICompatClient
}

// NewOpenRouter creates a provider for OpenRouter.
func NewOpenRouter(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api"
	}
	return &openRouterProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openRouterProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

// groqProvider implements Provider for Groq's inference API.
// Groq uses the OpenAI-compatible API format and provides extremely
// fast inference for open-source models (Llama, Mixtral, Gemma, etc.).
//
// API key: set via config, GROQ_API_KEY env var, or the server's
// HCIBRAIN_LLM_API_KEY env var.
type groqProvider struct {
	base openAICompatClient
}

// NewGroq creates a provider for Groq.
func NewGroq(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	return &groqProvider{base: newOpenAICompatClient(cfg)}
}

func (p *groqProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

// xaiProvider implements Provider for xAI (Grok).
// xAI uses the OpenAI-compatible API format.
type xaiProvider struct {
	base openAICompatClient
}

// NewXAI creates a provider for xAI (Grok).
func NewXAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.x.ai"
	}
	return &xaiProvider{base: newOpenAICompatClient(cfg)}
}

func (p *xaiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

// geminiProvider implements Provider for Google's Gemini API using the
// OpenAI-compatible endpoint. Gemini uses a different path prefix than
// standard OpenAI providers (no /v1).
//
// API key: set via config or GEMINI_API_KEY env var.
type geminiProvider struct {
	base openAICompatClient
}

// NewGemini creates a provider for Google Gemini.
func NewGemini(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	return &geminiProvider{base: newOpenAICompatClientPrefix(cfg, "")}
}

func (p *geminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}
