package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/cognito"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/sanitize"
	"github.com/go-chi/chi/v5"
)

// Service is the part of cognito.Service the HTTP surface needs.
type Service interface {
	Query(ctx context.Context, q cognito.Query) (*cognito.Answer, error)
	Resume(ctx context.Context, walkID, decision string) (*cognito.Answer, error)
	Walk(ctx context.Context, walkID string) (*domain.State, error)
	Pending(ctx context.Context) ([]string, error)
	Diagram(walk *domain.State) string
}

var _ Service = (*cognito.Service)(nil)

// ResumeRequest is the body of POST /v1/walks/{id}/resume.
type ResumeRequest struct {
	Decision string `json:"decision"`
}

// ErrorResponse is written for every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves the service over JSON.
type Server struct {
	Service Service
	Logger  *slog.Logger
}

// Option configures the handler.
type Option func(*handlerConfig)

type handlerConfig struct {
	logger  *slog.Logger
	metrics http.Handler
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *handlerConfig) { c.logger = logger }
}

// WithMetrics mounts h (usually promhttp) at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(c *handlerConfig) { c.metrics = h }
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc Service, opts ...Option) http.Handler {
	cfg := handlerConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{Service: svc, Logger: cfg.logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.PostQuery)
		r.Get("/walks", s.ListWalks)
		r.Get("/walks/{walkID}", s.GetWalk)
		r.Get("/walks/{walkID}/graph", s.GetWalkGraph)
		r.Post("/walks/{walkID}/resume", s.PostResume)
	})
	if cfg.metrics != nil {
		r.Handle("/metrics", cfg.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostQuery handles POST /v1/query. A suspended walk answers 202 with its pending approval.
func (s *Server) PostQuery(w http.ResponseWriter, r *http.Request) {
	var body cognito.Query
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body")
		s.Logger.Warn("query: invalid request body", "err", err)
		return
	}

	answer, err := s.Service.Query(r.Context(), body)
	if err != nil {
		s.failFor(w, "query", err)
		return
	}
	status := http.StatusOK
	if answer.Suspended() {
		status = http.StatusAccepted
	}
	s.write(w, status, answer)
}

// PostResume handles POST /v1/walks/{walkID}/resume.
func (s *Server) PostResume(w http.ResponseWriter, r *http.Request) {
	walkID := chi.URLParam(r, "walkID")
	var body ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body")
		s.Logger.Warn("resume: invalid request body", "walk_id", walkID, "err", err)
		return
	}

	answer, err := s.Service.Resume(r.Context(), walkID, body.Decision)
	if err != nil {
		s.failFor(w, "resume", err)
		return
	}
	s.write(w, http.StatusOK, answer)
}

// GetWalk handles GET /v1/walks/{walkID}.
func (s *Server) GetWalk(w http.ResponseWriter, r *http.Request) {
	walk, err := s.Service.Walk(r.Context(), chi.URLParam(r, "walkID"))
	if err != nil {
		s.failFor(w, "walk", err)
		return
	}
	s.write(w, http.StatusOK, cognito.AnswerFrom(walk))
}

// ListWalks handles GET /v1/walks.
func (s *Server) ListWalks(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Service.Pending(r.Context())
	if err != nil {
		s.failFor(w, "list", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.write(w, http.StatusOK, map[string][]string{"walks": ids})
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, _ *http.Request) {
	s.writeMermaid(w, s.Service.Diagram(nil))
}

// GetWalkGraph handles GET /v1/walks/{walkID}/graph, highlighting the walk's path.
func (s *Server) GetWalkGraph(w http.ResponseWriter, r *http.Request) {
	walk, err := s.Service.Walk(r.Context(), chi.URLParam(r, "walkID"))
	if err != nil {
		s.failFor(w, "walk graph", err)
		return
	}
	s.writeMermaid(w, s.Service.Diagram(walk))
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, map[string]string{
		"app":     "cognito-http",
		"version": cognito.Version,
	})
}

func (s *Server) writeMermaid(w http.ResponseWriter, diagram string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(diagram)); err != nil {
		s.Logger.Error("graph response write failed", "err", err)
	}
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrWalkNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotSuspended):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownDecision),
		errors.Is(err, sanitize.ErrEmptyInput),
		errors.Is(err, sanitize.ErrInputTooLarge),
		errors.Is(err, sanitize.ErrInvalidUTF8):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) failFor(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "err", err)
		s.fail(w, status, "internal error")
		return
	}
	s.Logger.Warn(op+" rejected", "err", err, "status", status)
	s.fail(w, status, err.Error())
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	s.write(w, status, ErrorResponse{Error: msg})
}

func (s *Server) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
