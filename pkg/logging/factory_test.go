package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		expectErr bool
		errMsg    string
	}{
		{
			name:   "nil config uses default",
			config: nil,
		},
		{
			name:   "valid development config",
			config: DevelopmentConfig(),
		},
		{
			name: "invalid level",
			config: &Config{
				Level:  LogLevel("invalid"),
				Format: LogFormatJSON,
				Output: LogOutputStdout,
			},
			expectErr: true,
			errMsg:    "invalid logging config",
		},
		{
			name: "invalid component level",
			config: &Config{
				Level:           LogLevelInfo,
				Format:          LogFormatJSON,
				Output:          LogOutputStdout,
				ComponentLevels: map[string]LogLevel{"storage": "loud"},
			},
			expectErr: true,
			errMsg:    "storage",
		},
		{
			name: "file output without path",
			config: &Config{
				Level:  LogLevelInfo,
				Format: LogFormatJSON,
				Output: LogOutputFile,
			},
			expectErr: true,
			errMsg:    "filePath required",
		},
		{
			name: "file output with valid path",
			config: &Config{
				Level:    LogLevelInfo,
				Format:   LogFormatJSON,
				Output:   LogOutputFile,
				FilePath: filepath.Join(t.TempDir(), "test.log"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewFactory(tt.config)
			if tt.expectErr {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer factory.Close()

			if factory.GetLogger("test") == nil {
				t.Error("Expected logger")
			}
		})
	}
}

func TestFactory_GetLogger_CachesPerComponent(t *testing.T) {
	factory, err := NewFactory(&Config{Level: LogLevelInfo, Format: LogFormatJSON, Output: LogOutputStdout, Writer: NewTestLogger()})
	if err != nil {
		t.Fatal(err)
	}

	a := factory.GetLogger("storage")
	b := factory.GetLogger("storage")
	c := factory.GetLogger("api")

	if a != b {
		t.Error("Expected the same logger for the same component")
	}
	if a == c {
		t.Error("Expected distinct loggers for distinct components")
	}
}

func TestFactory_ComponentLevels(t *testing.T) {
	capture := NewTestLogger()
	factory, err := NewFactory(&Config{
		Level:           LogLevelWarn,
		Format:          LogFormatJSON,
		Output:          LogOutputStdout,
		ComponentLevels: map[string]LogLevel{"storage.sqlite": LogLevelDebug},
		Writer:          capture,
	})
	if err != nil {
		t.Fatal(err)
	}

	factory.GetLogger("api").Info("api info")
	factory.GetLogger("api").Warn("api warn")
	factory.GetLogger("storage.sqlite").Debug("sqlite debug")

	capture.AssertNotLogged(t, "INFO", "api info")
	capture.AssertLogged(t, "WARN", "api warn")
	capture.AssertLogged(t, "DEBUG", "sqlite debug")

	for _, entry := range capture.GetEntries() {
		if entry.Component == "" {
			t.Errorf("Expected component attribute on %q", entry.Message)
		}
	}
}

func TestFactory_UpdateLevel(t *testing.T) {
	capture := NewTestLogger()
	factory, err := NewFactory(&Config{Level: LogLevelInfo, Format: LogFormatJSON, Output: LogOutputStdout, Writer: capture})
	if err != nil {
		t.Fatal(err)
	}

	logger := factory.GetLogger("api")
	pinned := factory.GetLogger("storage")
	factory.UpdateLevel("storage", LogLevelError)

	logger.Debug("before")
	factory.UpdateLevel("", LogLevelDebug)
	logger.Debug("after")
	pinned.Warn("pinned warn")

	capture.AssertNotLogged(t, "DEBUG", "before")
	capture.AssertLogged(t, "DEBUG", "after")
	capture.AssertNotLogged(t, "WARN", "pinned warn")

	levels := factory.Levels()
	if levels[""] != LogLevelDebug || levels["api"] != LogLevelDebug || levels["storage"] != LogLevelError {
		t.Errorf("Unexpected levels: %v", levels)
	}
}

func TestGlobalFactory(t *testing.T) {
	capture := NewTestLogger()
	cfg := DefaultConfig()
	cfg.Writer = capture
	cfg.Metrics.Enabled = false

	if err := Initialize(cfg); err != nil {
		t.Fatal(err)
	}
	defer Shutdown()

	GetGlobalLogger("etl").Info("global hello")
	capture.AssertLogged(t, "INFO", "global hello")

	if GetGlobalMetricsCollector() != nil {
		t.Error("Expected no collector when metrics are disabled")
	}

	UpdateGlobalLevel("etl", LogLevelError)
	if GetGlobalLevels()["etl"] != LogLevelError {
		t.Error("Expected global level update to apply")
	}

	if err := Shutdown(); err != nil {
		t.Fatal(err)
	}
	if GetGlobalLogger("after") == nil {
		t.Error("Expected fallback logger after shutdown")
	}
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]LogLevel{"DEBUG": LogLevelDebug, " info ": LogLevelInfo, "Warning": LogLevelWarn, "error": LogLevelError} {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background(), "create")
	if GetRequestID(ctx) == "" {
		t.Error("Expected generated request ID")
	}
	if GetOperation(ctx) != "create" {
		t.Errorf("Expected operation create, got %s", GetOperation(ctx))
	}
	if GetStartTime(ctx).IsZero() {
		t.Error("Expected start time")
	}

	kept := NewRequestContext(WithRequestID(context.Background(), "req-1"), "query")
	if GetRequestID(kept) != "req-1" {
		t.Errorf("Expected existing request ID to be kept, got %s", GetRequestID(kept))
	}
}

func TestFactory_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	factory, err := NewFactory(&Config{Level: LogLevelInfo, Format: LogFormatText, Output: LogOutputFile, FilePath: path})
	if err != nil {
		t.Fatal(err)
	}

	factory.GetLogger("file").Info("to disk")
	if err := factory.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to disk") {
		t.Errorf("Expected log file to contain message, got %q", data)
	}
}
