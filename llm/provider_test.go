package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"ollama", "*llm.ollamaProvider"},
		{"lmstudio", "*llm.lmStudioProvider"},
		{"openai", "*llm.openAIProvider"},
		{"openrouter", "*llm.openRouterProvider"},
		{"groq", "*llm.groqProvider"},
		{"xai", "*llm.xaiProvider"},
		{"gemini", "*llm.geminiProvider"},
		{"custom", "*llm.openAICompatProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := Config{
				Provider: tt.provider,
				Model:    "test-model",
			}
			p, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			gotType := fmt.Sprintf("%T", p)
			if gotType != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, gotType, tt.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist", Model: "test-model"})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	want := "unknown llm provider: doesnotexist"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewProviderEmpty(t *testing.T) {
	_, err := NewProvider(Config{Model: "test-model"})
	if err == nil {
		t.Fatal("expected error for empty provider, got nil")
	}
	want := "llm provider not specified"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestChatRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Error("expected json_object response format")
		}

		fmt.Fprint(w, `{
			"model": "test-model",
			"choices": [{"message": {"content": "{\"elements\": []}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "custom", Model: "test-model", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages:       []Message{{Role: "user", Content: "extract"}},
		ResponseFormat: "json_object",
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Content != `{"elements": []}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.TotalTokens)
	}
}

func TestChatNonRetryableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p, _ := NewProvider(Config{Provider: "custom", Model: "m", BaseURL: srv.URL})
	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}
