// Package admin serves operational endpoints on a separate listener.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JamesPrial/bed-occupancy-core/internal/storage"
	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

// AdminServer provides administrative endpoints for runtime configuration
type AdminServer struct {
	logger  *slog.Logger
	mux     *http.ServeMux
	backend storage.Backend
	metrics *logging.MetricsCollector
	server  *http.Server
}

// NewAdminServer creates a new admin server. metrics may be nil.
func NewAdminServer(backend storage.Backend, metrics *logging.MetricsCollector) *AdminServer {
	admin := &AdminServer{
		logger:  logging.GetGlobalLogger("admin"),
		mux:     http.NewServeMux(),
		backend: backend,
		metrics: metrics,
	}

	admin.setupRoutes()
	return admin
}

func (a *AdminServer) setupRoutes() {
	a.mux.HandleFunc("GET /health", a.handleHealth)
	a.mux.HandleFunc("GET /log-level", a.getLogLevel)
	a.mux.HandleFunc("POST /log-level", a.setLogLevel)
	a.mux.HandleFunc("GET /log-levels", a.handleLogLevels)
	a.mux.HandleFunc("GET /metrics", a.handleMetrics)
}

// ServeHTTP implements http.Handler
func (a *AdminServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// handleHealth reports the storage backend's health; 503 when unreachable
func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := a.backend.Health(r.Context())
	if err != nil {
		a.logger.WarnContext(r.Context(), "Backend health check failed", slog.String("error", err.Error()))
		writeJSON(w, errors.HTTPStatusCode(err), map[string]interface{}{
			"status": "unhealthy",
			"error":  errors.ToHTTPError(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"storage": status,
	})
}

// LogLevelRequest represents a log level change request
type LogLevelRequest struct {
	Component string `json:"component"`
	Level     string `json:"level"`
}

// LogLevelResponse represents a log level response
type LogLevelResponse struct {
	Component string `json:"component"`
	Level     string `json:"level"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

// getLogLevel returns the effective level of one component; no component
// means the global level.
func (a *AdminServer) getLogLevel(w http.ResponseWriter, r *http.Request) {
	component := r.URL.Query().Get("component")
	levels := logging.GetGlobalLevels()

	level, ok := levels[component]
	if !ok {
		level = levels[""]
	}

	writeJSON(w, http.StatusOK, LogLevelResponse{
		Component: displayName(component),
		Level:     string(level),
		Success:   true,
	})
}

func (a *AdminServer) setLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, LogLevelResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid JSON: %v", err),
		})
		return
	}

	level, err := logging.ParseLevel(req.Level)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, LogLevelResponse{
			Component: req.Component,
			Success:   false,
			Message:   fmt.Sprintf("Invalid log level '%s'. Must be one of: debug, info, warn, error", req.Level),
		})
		return
	}

	logging.UpdateGlobalLevel(req.Component, level)

	a.logger.Info("Log level updated",
		slog.String("component", displayName(req.Component)),
		slog.String("level", string(level)))

	writeJSON(w, http.StatusOK, LogLevelResponse{
		Component: displayName(req.Component),
		Level:     string(level),
		Success:   true,
		Message:   fmt.Sprintf("Log level for component '%s' updated to '%s'", displayName(req.Component), level),
	})
}

// handleLogLevels lists every component that has a logger
func (a *AdminServer) handleLogLevels(w http.ResponseWriter, r *http.Request) {
	levels := logging.GetGlobalLevels()

	out := make(map[string]string, len(levels))
	for name, level := range levels {
		out[displayName(name)] = string(level)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"levels": out})
}

func (a *AdminServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if a.metrics != nil {
		a.metrics.GetHTTPHandler().ServeHTTP(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "metrics not enabled",
	})
}

func displayName(component string) string {
	if component == "" {
		return "global"
	}
	return component
}

// Start listens on port and blocks until ctx is done or the listener fails
func (a *AdminServer) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	a.logger.Info("Starting admin server", slog.String("address", addr))

	a.server = &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := a.server

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
