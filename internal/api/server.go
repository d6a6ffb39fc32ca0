// Package api serves the occupancy store over a small REST interface.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/JamesPrial/bed-occupancy-core/internal/storage"
	"github.com/JamesPrial/bed-occupancy-core/pkg/config"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

// Server is the REST front of a single storage backend
type Server struct {
	backend      storage.Backend
	settings     config.HTTPSettings
	databaseType string
	version      string
	metrics      *logging.MetricsCollector
	logger       *slog.Logger
	interceptor  *logging.RequestInterceptor
	startedAt    time.Time

	handler http.Handler
	server  *http.Server
	mu      sync.Mutex
}

// Option customizes a Server
type Option func(*Server)

// WithMetrics instruments requests and exposes GET /metrics
func WithMetrics(collector *logging.MetricsCollector) Option {
	return func(s *Server) {
		s.metrics = collector
	}
}

// WithVersion sets the version reported by the banner and /health/info
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer builds the handler chain around backend. The backend is owned by
// the caller.
func NewServer(backend storage.Backend, cfg *config.Settings, opts ...Option) *Server {
	logger := logging.GetGlobalLogger("api")
	s := &Server{
		backend:      backend,
		settings:     cfg.HTTP,
		databaseType: cfg.DatabaseType,
		version:      "dev",
		logger:       logger,
		interceptor:  logging.NewRequestInterceptor(logger),
		startedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = s.buildHandler()
	return s
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("POST /api/v1/occupancy", s.handleCreate)
	mux.HandleFunc("GET /api/v1/occupancy", s.handleQuery)
	mux.HandleFunc("GET /api/v1/occupancy/all", s.handleListAll)
	mux.HandleFunc("GET /api/v1/occupancy/{id}", s.handleGet)

	mux.HandleFunc("GET /health/status", s.handleLiveness)
	mux.HandleFunc("GET /health/db", s.handleDBHealth)
	mux.HandleFunc("GET /health/info", s.handleInfo)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.GetHTTPHandler())
	}
	return mux
}

// buildHandler wraps the mux, outermost first: request logging with panic
// recovery and request ids, CORS, the request timeout, then metrics. Metrics
// must sit directly on the mux to see the matched pattern.
func (s *Server) buildHandler() http.Handler {
	var h http.Handler = s.routes()
	h = s.metrics.Middleware()(h)

	if timeout := time.Duration(s.settings.RequestTimeoutSeconds) * time.Second; timeout > 0 {
		h = http.TimeoutHandler(h, timeout, timeoutBody)
	}
	if s.settings.EnableCORS {
		h = corsMiddleware(h)
	}
	return s.interceptor.HTTPMiddleware(h)
}

// Start listens on the configured address and blocks until ctx is done or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := s.settings.Addr()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "HTTP server starting",
		slog.String("address", addr),
		slog.String("database_type", s.databaseType),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorContext(ctx, "HTTP server error", slog.String("error", err.Error()))
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "HTTP server context cancelled")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logger.InfoContext(ctx, "HTTP server stopping")
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Error during HTTP server shutdown", slog.String("error", err.Error()))
		return err
	}
	s.logger.InfoContext(ctx, "HTTP server stopped")
	return nil
}

// corsMiddleware adds permissive CORS headers and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+logging.RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", logging.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
