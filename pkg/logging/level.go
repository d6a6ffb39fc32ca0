package logging

import (
	"context"
	"log/slog"
)

// LevelHandler filters records below a dynamically adjustable level before
// handing them to the wrapped handler. The factory keeps one per component so
// levels can be changed at runtime through the admin server.
type LevelHandler struct {
	handler slog.Handler
	level   slog.Leveler
}

// NewLevelHandler wraps handler with a minimum level
func NewLevelHandler(handler slog.Handler, level slog.Leveler) *LevelHandler {
	// Avoid stacking level handlers
	if lh, ok := handler.(*LevelHandler); ok {
		handler = lh.handler
	}
	return &LevelHandler{handler: handler, level: level}
}

// Enabled implements slog.Handler
func (lh *LevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= lh.level.Level() && lh.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (lh *LevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < lh.level.Level() {
		return nil
	}
	return lh.handler.Handle(ctx, record)
}

// WithAttrs implements slog.Handler
func (lh *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{handler: lh.handler.WithAttrs(attrs), level: lh.level}
}

// WithGroup implements slog.Handler
func (lh *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{handler: lh.handler.WithGroup(name), level: lh.level}
}

// slogLevel converts our LogLevel to slog.Level
func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
