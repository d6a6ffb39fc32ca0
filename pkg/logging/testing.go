package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogger captures JSON log output for verification in tests
type TestLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

// TestLogEntry represents a captured log entry
type TestLogEntry struct {
	Level     string
	Message   string
	Component string
	RequestID string
	Operation string
	Error     string
	Attrs     map[string]interface{}
}

// NewTestLogger creates a new test logger that captures log output
func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

// Write implements io.Writer so the logger can back a Factory via Config.Writer
func (tl *TestLogger) Write(p []byte) (int, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buffer.Write(p)
}

// GetHandler returns a debug-level JSON handler writing to this test logger
func (tl *TestLogger) GetHandler() slog.Handler {
	return slog.NewJSONHandler(tl, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// GetLogger returns a slog.Logger that writes to this test logger
func (tl *TestLogger) GetLogger() *slog.Logger {
	return slog.New(tl.GetHandler())
}

// GetEntries returns all captured log entries
func (tl *TestLogger) GetEntries() []TestLogEntry {
	tl.mu.Lock()
	content := tl.buffer.String()
	tl.mu.Unlock()

	var entries []TestLogEntry
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			continue
		}
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}

		entry := TestLogEntry{Attrs: make(map[string]interface{})}
		for key, value := range raw {
			s, _ := value.(string)
			switch key {
			case "time":
			case "level":
				entry.Level = s
			case "msg":
				entry.Message = s
			case "component":
				entry.Component = s
			case "request_id":
				entry.RequestID = s
			case "operation":
				entry.Operation = s
			case "error":
				entry.Error = s
			default:
				entry.Attrs[key] = value
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// GetEntriesWithLevel returns log entries matching the specified level
func (tl *TestLogger) GetEntriesWithLevel(level string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if strings.EqualFold(entry.Level, level) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// GetEntriesWithMessage returns log entries containing the specified message
func (tl *TestLogger) GetEntriesWithMessage(message string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if strings.Contains(entry.Message, message) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// Count returns the total number of captured entries
func (tl *TestLogger) Count() int {
	return len(tl.GetEntries())
}

// AssertLogged verifies that a log entry with the specified level and message was captured
func (tl *TestLogger) AssertLogged(t *testing.T, level, message string) {
	t.Helper()

	for _, entry := range tl.GetEntries() {
		if strings.EqualFold(entry.Level, level) && strings.Contains(entry.Message, message) {
			return
		}
	}
	t.Errorf("expected %s log containing %q, got %d entries", level, message, tl.Count())
}

// AssertNotLogged verifies that no entry with the level and message was captured
func (tl *TestLogger) AssertNotLogged(t *testing.T, level, message string) {
	t.Helper()

	for _, entry := range tl.GetEntries() {
		if strings.EqualFold(entry.Level, level) && strings.Contains(entry.Message, message) {
			t.Errorf("unexpected %s log containing %q", level, message)
			return
		}
	}
}
