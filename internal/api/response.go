package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

// Envelope wraps every JSON response
type Envelope struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
	Count     *int              `json:"count,omitempty"`
	Error     *errors.HTTPError `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

const timeoutBody = `{"success":false,"error":{"status":503,"code":"SERVICE_UNAVAILABLE","message":"request timed out"}}`

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to encode response",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) writeData(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	s.writeJSON(w, r, status, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) writeList(w http.ResponseWriter, r *http.Request, message string, data interface{}, n int) {
	s.writeJSON(w, r, http.StatusOK, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Count:     &n,
		Timestamp: time.Now().UTC(),
	})
}

// writeError maps err onto its HTTP status. Server-side failures are logged
// with the internal cause; clients only see the safe message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := errors.ToHTTPError(err)

	logger := logging.WithContext(r.Context(), s.logger)
	if httpErr.Status >= http.StatusInternalServerError {
		attrs := []any{
			slog.String("code", string(httpErr.Code)),
			slog.Int("status", httpErr.Status),
			slog.String("error", err.Error()),
		}
		if internal := errors.GetInternal(err); internal != nil {
			attrs = append(attrs, slog.String("cause", internal.Error()))
		}
		logger.ErrorContext(r.Context(), "Request failed", attrs...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			slog.String("code", string(httpErr.Code)),
			slog.String("error", err.Error()),
		)
	}

	s.writeJSON(w, r, httpErr.Status, Envelope{
		Success:   false,
		Error:     &httpErr,
		Timestamp: time.Now().UTC(),
	})
}
