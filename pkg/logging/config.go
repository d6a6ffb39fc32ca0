package logging

import (
	"fmt"
	"io"
	"strings"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LogOutput represents the destination for logs
type LogOutput string

const (
	LogOutputStdout LogOutput = "stdout"
	LogOutputStderr LogOutput = "stderr"
	LogOutputFile   LogOutput = "file"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var validLevels = map[LogLevel]bool{
	LogLevelDebug: true,
	LogLevelInfo:  true,
	LogLevelWarn:  true,
	LogLevelError: true,
}

// Config represents the complete logging configuration
type Config struct {
	// Global settings
	Level  LogLevel  `yaml:"level" json:"level"`
	Format LogFormat `yaml:"format" json:"format"`
	Output LogOutput `yaml:"output" json:"output"`

	FilePath string `yaml:"filePath,omitempty" json:"filePath,omitempty"`

	// Component-specific log levels
	ComponentLevels map[string]LogLevel `yaml:"componentLevels,omitempty" json:"componentLevels,omitempty"`

	EnableCaller bool `yaml:"enableCaller" json:"enableCaller"`

	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`

	// Writer overrides Output when set. Used by tests.
	Writer io.Writer `yaml:"-" json:"-"`
}

// DefaultConfig returns a default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:   LogLevelInfo,
		Format:  LogFormatJSON,
		Output:  LogOutputStdout,
		Metrics: DefaultMetricsConfig(),
	}
}

// DevelopmentConfig returns a configuration suitable for development
func DevelopmentConfig() *Config {
	config := DefaultConfig()
	config.Level = LogLevelDebug
	config.Format = LogFormatText
	config.EnableCaller = true
	return config
}

// ParseLevel converts a case-insensitive level name into a LogLevel.
// "warning" is accepted as an alias of "warn".
func ParseLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if level == "warning" {
		level = LogLevelWarn
	}
	if !validLevels[level] {
		return "", fmt.Errorf("invalid log level: %s", s)
	}
	return level, nil
}

// Validate validates the logging configuration
func (c *Config) Validate() error {
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	for component, level := range c.ComponentLevels {
		if !validLevels[level] {
			return fmt.Errorf("invalid log level for component %s: %s", component, level)
		}
	}

	switch c.Format {
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	switch c.Output {
	case LogOutputStdout, LogOutputStderr:
	case LogOutputFile:
		if strings.TrimSpace(c.FilePath) == "" {
			return fmt.Errorf("filePath required when output is 'file'")
		}
	default:
		return fmt.Errorf("invalid log output: %s", c.Output)
	}

	return nil
}

// GetLevelForComponent returns the log level for a specific component
func (c *Config) GetLevelForComponent(component string) LogLevel {
	if level, ok := c.ComponentLevels[component]; ok {
		return level
	}
	return c.Level
}
