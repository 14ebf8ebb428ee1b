package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"docuquest/internal/config"
	"docuquest/internal/metrics"
	"docuquest/internal/parser"
	"docuquest/internal/quiz"
)

// Readiness reports whether the optional model-backed question source has
// finished loading.
type Readiness interface {
	Ready() bool
}

type Server struct {
	quiz    *quiz.Service
	metrics *metrics.Metrics
	model   Readiness
	limiter *rate.Limiter
	cfg     config.ServerConfig
}

// NewServer wires the JSON API. model may be nil when no model source runs.
func NewServer(q *quiz.Service, m *metrics.Metrics, model Readiness, cfg config.ServerConfig) *Server {
	return &Server{
		quiz:    q,
		metrics: m,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		cfg:     cfg,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("POST /documents", s.uploadDocument)
	mux.HandleFunc("GET /documents/{id}", s.getDocument)
	mux.HandleFunc("GET /documents/{id}/stats", s.getStats)
	mux.HandleFunc("GET /documents/{id}/questions/{difficulty}", s.getQuestions)
	mux.HandleFunc("POST /documents/{id}/questions/{difficulty}/more", s.rateLimited(s.moreQuestions))
	return requestIDMiddleware(accessLogMiddleware(s.metrics.Middleware(mux)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	modelReady := s.model != nil && s.model.Ready()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "model_ready": modelReady})
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)

	file, fileHeader, err := r.FormFile("document")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d MB", s.cfg.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, errors.New("multipart field 'document' is required"))
		return
	}
	defer file.Close()

	if fileHeader.Filename == "" || !parser.Supported(fileHeader.Filename) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid file type: %s", filepath.Ext(fileHeader.Filename)))
		return
	}

	path, err := s.saveUpload(file, fileHeader.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error removing upload")
		}
	}()

	doc, err := s.quiz.Ingest(r.Context(), path, filepath.Ext(fileHeader.Filename))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	if doc.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, struct {
		Success bool `json:"success"`
		*quiz.Document
	}{Success: true, Document: doc})
}

// saveUpload copies the upload to a temp file keeping its extension, which
// drives format dispatch.
func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	dst, err := os.CreateTemp(s.cfg.UploadDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return dst.Name(), nil
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.quiz.Document(r.PathValue("id"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*quiz.Document
	}{Success: true, Document: doc})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.quiz.Stats(r.PathValue("id"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *Server) getQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.quiz.Questions(r.PathValue("id"), r.PathValue("difficulty"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"questions":   questions,
		"total_count": len(questions),
	})
}

func (s *Server) moreQuestions(w http.ResponseWriter, r *http.Request) {
	batch, err := s.quiz.More(r.Context(), r.PathValue("id"), r.PathValue("difficulty"))
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*quiz.Batch
	}{Success: true, Batch: batch})
}

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, errors.New("too many requests"))
			return
		}
		next(w, r)
	}
}
