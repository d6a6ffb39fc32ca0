package logging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"
)

// RequestInterceptor provides request lifecycle logging capabilities
type RequestInterceptor struct {
	logger *slog.Logger
}

// NewRequestInterceptor creates a new request interceptor with the specified logger
func NewRequestInterceptor(logger *slog.Logger) *RequestInterceptor {
	return &RequestInterceptor{
		logger: logger,
	}
}

// InterceptRequest wraps a function with request lifecycle logging
func (r *RequestInterceptor) InterceptRequest(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx = NewRequestContext(ctx, operation)
	startTime := time.Now()
	requestID := GetRequestID(ctx)

	r.logger.InfoContext(ctx, "Request started",
		slog.String("operation", operation),
		slog.String("request_id", requestID),
	)

	err := fn(ctx)
	duration := time.Since(startTime)

	if err != nil {
		r.logger.ErrorContext(ctx, "Request completed with error",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
	} else {
		r.logger.InfoContext(ctx, "Request completed successfully",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
		)
	}

	return err
}

// HTTPMiddleware logs the lifecycle of every HTTP request. It reuses an
// inbound X-Request-ID or generates one, echoes it on the response, and turns
// panics that escape the handler chain into a 500.
func (r *RequestInterceptor) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		startTime := time.Now()

		ctx := req.Context()
		if id := req.Header.Get(RequestIDHeader); id != "" {
			ctx = WithRequestID(ctx, id)
		}
		operation := fmt.Sprintf("%s %s", req.Method, req.URL.Path)
		ctx = NewRequestContext(ctx, operation)
		req = req.WithContext(ctx)

		requestID := GetRequestID(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		r.logger.DebugContext(ctx, "HTTP request started",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("remote_addr", req.RemoteAddr),
			slog.String("user_agent", req.UserAgent()),
			slog.String("request_id", requestID),
		)

		wrappedWriter := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		defer func() {
			if recovered := recover(); recovered != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)

				r.logger.ErrorContext(ctx, "HTTP request panicked",
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
					slog.String("request_id", requestID),
					slog.Duration("duration", time.Since(startTime)),
					slog.Any("panic", recovered),
					slog.String("stack_trace", string(buf[:n])),
				)

				if !wrappedWriter.headerWritten {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(wrappedWriter, req)

		duration := time.Since(startTime)
		statusCode := wrappedWriter.statusCode
		if statusCode >= 400 {
			r.logger.WarnContext(ctx, "HTTP request completed with error",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("request_id", requestID),
				slog.Int("status_code", statusCode),
				slog.Duration("duration", duration),
			)
		} else {
			r.logger.InfoContext(ctx, "HTTP request completed successfully",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("request_id", requestID),
				slog.Int("status_code", statusCode),
				slog.Duration("duration", duration),
			)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.headerWritten {
		return
	}
	rw.statusCode = statusCode
	rw.headerWritten = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.headerWritten = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// OperationTimer helps track operation latencies
type OperationTimer struct {
	logger    *slog.Logger
	operation string
	startTime time.Time
	ctx       context.Context
}

// StartTimer creates a new operation timer
func StartTimer(ctx context.Context, logger *slog.Logger, operation string) *OperationTimer {
	if GetRequestID(ctx) == "" {
		ctx = NewRequestContext(ctx, operation)
	}

	logger.DebugContext(ctx, "Operation started",
		slog.String("operation", operation),
		slog.String("request_id", GetRequestID(ctx)),
	)

	return &OperationTimer{
		logger:    logger,
		operation: operation,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

// End completes the timer and logs the duration
func (t *OperationTimer) End() time.Duration {
	return t.EndWithError(nil)
}

// EndWithError completes the timer and logs the duration with an error
func (t *OperationTimer) EndWithError(err error) time.Duration {
	duration := time.Since(t.startTime)
	LogLatency(t.ctx, t.logger, t.operation, duration, err)
	return duration
}

// LogLatency is a helper function to log operation latencies
func LogLatency(ctx context.Context, logger *slog.Logger, operation string, duration time.Duration, err error) {
	requestID := GetRequestID(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Operation completed with error",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.DebugContext(ctx, "Operation completed",
		slog.String("operation", operation),
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
	)
}
