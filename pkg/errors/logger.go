package errors

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

// Logger provides centralized error logging
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new error logger using the global logging factory
func NewLogger(component string) *Logger {
	return &Logger{logger: logging.GetGlobalLogger(component)}
}

// NewLoggerWithSlog creates a new error logger with a specific slog logger
func NewLoggerWithSlog(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// LogError logs err with its request context and returns the error that is
// safe to hand to a client: AppErrors are returned as-is, anything else is
// wrapped as an internal error.
func (l *Logger) LogError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	logger := logging.WithContext(ctx, l.logger)
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("error_type", fmt.Sprintf("%T", err)),
	}

	appErr, ok := As(err)
	if !ok {
		logger.LogAttrs(ctx, slog.LevelError, "Unexpected error occurred",
			append(attrs,
				slog.String("error", err.Error()),
				slog.String("error_code", string(ErrCodeInternal)),
			)...)
		return Internal(err)
	}

	attrs = append(attrs,
		slog.String("error_code", string(appErr.Code)),
		slog.String("error_message", appErr.Message),
	)
	if appErr.Internal != nil {
		attrs = append(attrs, slog.String("internal_error", appErr.Internal.Error()))
	}
	if appErr.Details != nil {
		attrs = append(attrs, slog.Any("error_details", appErr.Details))
	}

	logger.LogAttrs(ctx, logLevel(appErr.Code), "Application error occurred", attrs...)
	return appErr
}

// LogAndWrap logs an error and wraps it with an AppError
func (l *Logger) LogAndWrap(ctx context.Context, err error, code ErrorCode, message, operation string) *AppError {
	if err == nil {
		return nil
	}

	appErr := Wrap(err, code, message)
	l.LogError(ctx, appErr, operation)
	return appErr
}

// LogPanic logs a panic and returns an appropriate error
func (l *Logger) LogPanic(ctx context.Context, recovered interface{}, operation string) error {
	logging.WithContext(ctx, l.logger).LogAttrs(ctx, slog.LevelError, "Panic recovered",
		slog.String("operation", operation),
		slog.String("error_code", string(ErrCodePanic)),
		slog.Any("panic_value", recovered),
		slog.Any("stack_trace", captureStack(3)),
	)

	return New(ErrCodePanic, "An unexpected error occurred")
}

// captureStack captures the current stack trace
func captureStack(skip int) []string {
	const maxStackSize = 10
	stack := make([]string, 0, maxStackSize)

	for i := skip; i < skip+maxStackSize; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		if idx := strings.LastIndex(file, "/bed-occupancy-core/"); idx >= 0 {
			file = file[idx+len("/bed-occupancy-core/"):]
		}

		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
	}

	return stack
}

// logLevel determines the appropriate log level for an error code
func logLevel(code ErrorCode) slog.Level {
	switch {
	case strings.HasPrefix(string(code), "VALIDATION_"),
		strings.HasPrefix(string(code), "TRANSPORT_"):
		return slog.LevelWarn
	case code == ErrCodeRecordNotFound, code == ErrCodeContextCanceled:
		return slog.LevelInfo
	case strings.HasPrefix(string(code), "STORAGE_"),
		code == ErrCodeInternal, code == ErrCodePanic, code == ErrCodeConfiguration:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Default logger instance
var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func getDefaultLogger() *Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger("errors")
	}
	return defaultLogger
}

// SetDefaultLogger sets the default error logger
func SetDefaultLogger(logger *slog.Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = NewLoggerWithSlog(logger)
}

// LogError logs an error using the default logger
func LogError(ctx context.Context, err error, operation string) error {
	return getDefaultLogger().LogError(ctx, err, operation)
}

// LogAndWrap logs and wraps an error using the default logger
func LogAndWrap(ctx context.Context, err error, code ErrorCode, message, operation string) *AppError {
	return getDefaultLogger().LogAndWrap(ctx, err, code, message, operation)
}

// LogPanic logs a panic using the default logger
func LogPanic(ctx context.Context, recovered interface{}, operation string) error {
	return getDefaultLogger().LogPanic(ctx, recovered, operation)
}
