// Package web provides the status server: health, metrics, run history and
// an endpoint to trigger a run for a date.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/ingest/internal/config"
	"github.com/JonMunkholm/ingest/internal/core"
	"github.com/JonMunkholm/ingest/internal/ledger"
	"github.com/JonMunkholm/ingest/internal/pipeline"
	"github.com/JonMunkholm/ingest/internal/summary"
	mw "github.com/JonMunkholm/ingest/internal/web/middleware"
)

// Runner executes a run for one date. Satisfied by *pipeline.Runner.
type Runner interface {
	Run(ctx context.Context, runDate core.Date) (summary.RunSummary, error)
}

// History reads recorded runs. Satisfied by *ledger.Queries.
type History interface {
	ListRecent(ctx context.Context, limit int) ([]ledger.Run, error)
	ForDate(ctx context.Context, runDate core.Date) ([]ledger.Run, error)
}

// Options configures a Server. Only Runner is required.
type Options struct {
	Runner     Runner
	Limiter    *pipeline.RunLimiter
	History    History      // Optional; in-memory summaries are used without it
	Metrics    http.Handler // Optional; /metrics is not mounted without it
	RunTimeout time.Duration
}

// Server is the HTTP status server.
type Server struct {
	cfg  config.ServerConfig
	opts Options

	router *chi.Mux
	server *http.Server

	mu   sync.RWMutex
	last map[core.Date]runRecord
}

// runRecord is the in-memory result of a run triggered through this server.
type runRecord struct {
	Summary  summary.RunSummary
	Errors   []core.UserMessage
	Failed   []failedEntity
	Finished time.Time
}

// failedEntity is an entity that aborted during a run triggered here.
type failedEntity struct {
	Entity string
	Error  string
}

// NewServer creates a new Server instance.
func NewServer(cfg config.ServerConfig, opts Options) *Server {
	if opts.Limiter == nil {
		opts.Limiter = pipeline.NewRunLimiter(pipeline.DefaultMaxConcurrentRuns, pipeline.DefaultMaxWaitTime)
	}
	s := &Server{
		cfg:    cfg,
		opts:   opts,
		router: chi.NewRouter(),
		last:   make(map[core.Date]runRecord),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{date}", s.handleGetRun)
		r.With(mw.APIKeyAuth(s.cfg.APIKeys)).Post("/runs/{date}", s.handleTriggerRun)
		r.Get("/limiter", s.handleLimiterStatus)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("status server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight runs.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if drainErr := s.opts.Limiter.WaitForDrain(ctx); drainErr != nil {
		slog.Warn("runs did not complete in time", "error", drainErr)
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
