package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	hcibrain "github.com/nbhansen/hcibrain-sub000"
	"github.com/nbhansen/hcibrain-sub000/export"
)

type handler struct {
	engine hcibrain.Engine
}

func newHandler(e hcibrain.Engine) *handler {
	return &handler{engine: e}
}

// POST /extract
// Accepts a multipart PDF upload or JSON with a file path. The optional
// "format" query parameter selects json (default) or xlsx output.
func (h *handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	path, cleanup, ok := h.resolveInput(w, r)
	if !ok {
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	res, err := h.engine.ExtractFile(ctx, path)
	if err != nil {
		status, msg := extractErrorStatus(err)
		writeError(w, status, msg)
		slog.Error("extract error", "path", path, "error", err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="extraction.xlsx"`)
		if err := export.WriteXLSX(w, res); err != nil {
			slog.Error("writing xlsx response", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// resolveInput picks the PDF to process: an uploaded file saved to a
// temp path, or an existing local path from a JSON body.
func (h *handler) resolveInput(w http.ResponseWriter, r *http.Request) (path string, cleanup func(), ok bool) {
	if err := r.ParseMultipartForm(100 << 20); err == nil { // 100MB max
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Sanitise filename to prevent path traversal.
			safeName := filepath.Base(header.Filename)

			tmpPath := filepath.Join(os.TempDir(), safeName)
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return "", nil, false
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return "", nil, false
			}
			dst.Close()
			return tmpPath, func() { os.Remove(tmpPath) }, true
		}
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path'")
		return "", nil, false
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return "", nil, false
	}

	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return "", nil, false
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusBadRequest, "path must be an existing file")
		return "", nil, false
	}
	return absPath, nil, true
}

// extractErrorStatus maps pipeline sentinels to HTTP statuses so clients
// can tell a bad document from a degraded backend.
func extractErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, hcibrain.ErrParsingFailed):
		return http.StatusUnprocessableEntity, "could not parse PDF"
	case errors.Is(err, hcibrain.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, "document contains no extractable text"
	case errors.Is(err, hcibrain.ErrNoSections):
		return http.StatusUnprocessableEntity, "no sections detected in document"
	case errors.Is(err, hcibrain.ErrLLMUnavailable):
		return http.StatusBadGateway, "LLM provider unavailable"
	default:
		return http.StatusInternalServerError, "extraction failed"
	}
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
