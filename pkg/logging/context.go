package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Context keys for logging metadata
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyOperation contextKey = "operation"
	contextKeyStartTime contextKey = "start_time"
)

// RequestIDHeader carries the correlation id in and out of HTTP requests
const RequestIDHeader = "X-Request-ID"

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if str, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return str
	}
	return ""
}

// WithOperation adds an operation name to the context
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextKeyOperation, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if str, ok := ctx.Value(contextKeyOperation).(string); ok {
		return str
	}
	return ""
}

// GetStartTime retrieves the time NewRequestContext was called
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyStartTime).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// NewRequestContext tags ctx with an operation and start time, generating a
// request ID unless one is already present.
func NewRequestContext(ctx context.Context, operation string) context.Context {
	if GetRequestID(ctx) == "" {
		ctx = WithRequestID(ctx, GenerateID())
	}
	if operation != "" {
		ctx = WithOperation(ctx, operation)
	}
	return context.WithValue(ctx, contextKeyStartTime, time.Now())
}

// WithContext returns logger with request_id and operation attributes taken from ctx
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	args := make([]any, 0, 4)
	if reqID := GetRequestID(ctx); reqID != "" {
		args = append(args, slog.String("request_id", reqID))
	}
	if operation := GetOperation(ctx); operation != "" {
		args = append(args, slog.String("operation", operation))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}

// GenerateID returns a new random request ID
func GenerateID() string {
	return uuid.NewString()
}
