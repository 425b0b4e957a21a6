package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
	"github.com/CarSeekAI/carseek-mvp/engine/search"
	"github.com/CarSeekAI/carseek-mvp/pkg/resilience"
)

//go:embed static/index.html
var indexHTML []byte

// maxUploadBytes caps the multipart image upload.
const maxUploadBytes = 20 << 20

func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// TextSearchRequest is the JSON body for POST /api/search/text.
type TextSearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SearchResponse is the JSON response for both search endpoints.
type SearchResponse struct {
	Hits  []domain.SearchHit `json:"hits"`
	Count int                `json:"count"`
}

func handleTextSearch(svc *search.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mQueries("text").Inc()

		var req TextSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		hits, err := svc.SearchByText(r.Context(), req.Query, req.K)
		if err != nil {
			mErrors("text").Inc()
			writeSearchError(w, logger, "text", err)
			return
		}

		mQueryDur.Since(start)
		writeJSON(w, SearchResponse{Hits: hits, Count: len(hits)})
	}
}

func handleImageSearch(svc *search.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mQueries("image").Inc()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "image file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read image upload")
			return
		}
		mUploadsKB.Observe(float64(len(data)) / 1024)

		hits, err := svc.SearchByImage(r.Context(), data, parseK(r.FormValue("k")))
		if err != nil {
			mErrors("image").Inc()
			writeSearchError(w, logger, "image", err)
			return
		}

		mQueryDur.Since(start)
		writeJSON(w, SearchResponse{Hits: hits, Count: len(hits)})
	}
}

// writeSearchError maps service errors to HTTP statuses: bad input is the
// caller's fault, provider trouble is a bad gateway, anything else is a 500.
func writeSearchError(w http.ResponseWriter, logger *slog.Logger, modality string, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "query must not be empty")
	case errors.Is(err, domain.ErrEmptyImage):
		writeError(w, http.StatusBadRequest, "image must not be empty")
	case errors.Is(err, domain.ErrProvider), errors.Is(err, resilience.ErrCircuitOpen):
		logger.Error("embedding provider unavailable", "modality", modality, "err", err)
		writeError(w, http.StatusBadGateway, "embedding provider unavailable")
	default:
		logger.Error("search failed", "modality", modality, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
