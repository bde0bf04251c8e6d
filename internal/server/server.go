// Package server exposes the answering pipeline over a thin JSON HTTP
// surface: one answer endpoint and a health check. No auth, no
// sessions; the service is a stateless question-in answer-out box.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/wayfarer/internal/agent"
	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// shutdownTimeout bounds graceful drain on Stop.
const shutdownTimeout = 10 * time.Second

// answerer is the routing dependency, satisfied by agent.Router.
type answerer interface {
	Handle(ctx context.Context, req agent.Request) (*agent.Response, error)
}

// Server is the JSON API HTTP server.
type Server struct {
	router answerer
	logger *slog.Logger
	mux    *http.ServeMux
	http   *http.Server
}

// New creates the server with all routes configured.
func New(addr string, router answerer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{router: router, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /v1/answer", s.handleAnswer)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.withRequestLogging(s.mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks serving requests until Stop or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server_listening", slog.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// answerRequest is the wire shape of POST /v1/answer.
type answerRequest struct {
	Query    string `json:"query"`
	Country  string `json:"country,omitempty"`
	Category string `json:"category,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// errorResponse is the wire shape of any failure.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required", errors.ErrCodeEmptyQuery)
		return
	}

	category := store.Category(strings.ToLower(req.Category))
	if req.Category != "" && !store.ValidCategory(category) {
		s.writeError(w, http.StatusBadRequest,
			"category must be one of visa, culture, law, safety", errors.ErrCodeInvalidInput)
		return
	}

	resp, err := s.router.Handle(r.Context(), agent.Request{
		Query:    req.Query,
		Country:  req.Country,
		Category: category,
		TopK:     req.TopK,
	})
	if err != nil {
		status := statusFor(err)
		s.logger.Error("answer_failed",
			slog.String("error", err.Error()),
			slog.Int("status", status))
		s.writeError(w, status, "failed to answer query", errors.CodeOf(err))
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps pipeline failures onto HTTP statuses. Upstream model
// trouble is a bad gateway; everything else is internal.
func statusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeEmptyQuery, errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeGenerationFailed, errors.ErrCodeModelCall:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response_encode_failed", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg, code string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// withRequestLogging assigns each request an ID and logs its outcome.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("http_request",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
