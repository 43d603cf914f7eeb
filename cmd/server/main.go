package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	hcibrain "github.com/nbhansen/hcibrain-sub000"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := hcibrain.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = hcibrain.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}

	// Override from environment variables.
	if v := os.Getenv("HCIBRAIN_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("HCIBRAIN_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("HCIBRAIN_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("HCIBRAIN_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	// Fallback: check well-known provider env vars for API keys.
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		case "openrouter":
			cfg.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
		}
	}

	apiKey := os.Getenv("HCIBRAIN_API_KEY")
	corsOrigins := os.Getenv("HCIBRAIN_CORS_ORIGINS")

	engine, err := hcibrain.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /extract", h.handleExtract)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // extraction can take minutes on large papers
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
