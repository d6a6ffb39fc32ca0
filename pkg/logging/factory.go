package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Factory creates and manages loggers for different components
type Factory struct {
	config  *Config
	loggers map[string]*slog.Logger
	levels  map[string]*slog.LevelVar
	mu      sync.RWMutex

	// Shared resources
	handler          slog.Handler
	file             *os.File
	metricsCollector *MetricsCollector
}

// NewFactory creates a new logger factory
func NewFactory(config *Config) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	f := &Factory{
		config:  config,
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
	}

	if err := f.initializeHandler(); err != nil {
		return nil, fmt.Errorf("failed to initialize handler: %w", err)
	}

	if config.Metrics.Enabled {
		f.metricsCollector = NewMetricsCollector(config.Metrics)
	}

	return f, nil
}

// initializeHandler creates the base slog handler. Filtering happens per
// component in LevelHandler, so the base handler accepts everything.
func (f *Factory) initializeHandler() error {
	var writer io.Writer

	switch {
	case f.config.Writer != nil:
		writer = f.config.Writer
	case f.config.Output == LogOutputStderr:
		writer = os.Stderr
	case f.config.Output == LogOutputFile:
		file, err := os.OpenFile(f.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		f.file = file
		writer = file
	default:
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: f.config.EnableCaller,
	}

	switch f.config.Format {
	case LogFormatText:
		f.handler = slog.NewTextHandler(writer, opts)
	default:
		f.handler = slog.NewJSONHandler(writer, opts)
	}

	return nil
}

// GetLogger returns a logger for a specific component
func (f *Factory) GetLogger(component string) *slog.Logger {
	f.mu.RLock()
	if logger, exists := f.loggers[component]; exists {
		f.mu.RUnlock()
		return logger
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if logger, exists := f.loggers[component]; exists {
		return logger
	}

	level := &slog.LevelVar{}
	level.Set(slogLevel(f.config.GetLevelForComponent(component)))
	f.levels[component] = level

	logger := slog.New(NewLevelHandler(f.handler, level)).With(
		slog.String("component", component),
	)

	f.loggers[component] = logger
	return logger
}

// GetMetricsCollector returns the metrics collector, nil when metrics are disabled
func (f *Factory) GetMetricsCollector() *MetricsCollector {
	return f.metricsCollector
}

// WithContext returns logger enriched with the request-scoped values in ctx
func (f *Factory) WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = f.GetLogger("default")
	}
	return WithContext(ctx, logger)
}

// UpdateLevel changes the level of component at runtime. Loggers already
// handed out pick up the change. An empty component updates the global level
// for every component without an explicit override.
func (f *Factory) UpdateLevel(component string, level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if component == "" {
		f.config.Level = level
		for name, v := range f.levels {
			if _, pinned := f.config.ComponentLevels[name]; !pinned {
				v.Set(slogLevel(level))
			}
		}
		return
	}

	if f.config.ComponentLevels == nil {
		f.config.ComponentLevels = make(map[string]LogLevel)
	}
	f.config.ComponentLevels[component] = level

	if v, ok := f.levels[component]; ok {
		v.Set(slogLevel(level))
	}
}

// Levels returns the effective level of the global config, of every
// component that has a logger and of every pinned component.
func (f *Factory) Levels() map[string]LogLevel {
	f.mu.RLock()
	defer f.mu.RUnlock()

	levels := map[string]LogLevel{"": f.config.Level}
	for name := range f.levels {
		levels[name] = f.config.GetLevelForComponent(name)
	}
	for name, level := range f.config.ComponentLevels {
		levels[name] = level
	}
	return levels
}

// Close releases the log file, if any
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file != nil {
		if err := f.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		f.file = nil
	}
	return nil
}

// Global factory instance
var (
	globalFactory *Factory
	globalMu      sync.RWMutex
)

// Initialize sets up the global logger factory
func Initialize(config *Config) error {
	factory, err := NewFactory(config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()

	if globalFactory != nil {
		if err := globalFactory.Close(); err != nil {
			return fmt.Errorf("failed to close existing factory: %w", err)
		}
	}

	globalFactory = factory
	slog.SetDefault(factory.GetLogger("default"))
	return nil
}

// GetGlobalLogger returns a logger from the global factory
func GetGlobalLogger(component string) *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return slog.Default().With(slog.String("component", component))
	}

	return globalFactory.GetLogger(component)
}

// GetGlobalMetricsCollector returns the global metrics collector
func GetGlobalMetricsCollector() *MetricsCollector {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return nil
	}

	return globalFactory.GetMetricsCollector()
}

// GetGlobalLevels returns the levels known to the global factory
func GetGlobalLevels() map[string]LogLevel {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return map[string]LogLevel{}
	}
	return globalFactory.Levels()
}

// Shutdown gracefully shuts down the global logging factory
func Shutdown() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalFactory == nil {
		return nil
	}

	err := globalFactory.Close()
	globalFactory = nil
	return err
}

// UpdateGlobalLevel dynamically updates the log level for a component
func UpdateGlobalLevel(component string, level LogLevel) {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return
	}

	globalFactory.UpdateLevel(component, level)
}
