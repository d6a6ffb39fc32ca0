package storage

import (
	"context"
	"log/slog"

	"github.com/JamesPrial/bed-occupancy-core/pkg/config"
	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

// Option customizes NewBackend
type Option func(*factoryOptions)

type factoryOptions struct {
	collector *logging.MetricsCollector
}

// WithMetrics wraps the selected backend with Instrument
func WithMetrics(collector *logging.MetricsCollector) Option {
	return func(o *factoryOptions) {
		o.collector = collector
	}
}

// NewBackend creates the storage backend named by cfg.DatabaseType. It is
// the only place that branches on the backend type and never falls back to
// a different backend: bad settings are a CONFIGURATION_ERROR.
func NewBackend(ctx context.Context, cfg *config.Settings, opts ...Option) (Backend, error) {
	if cfg == nil {
		return nil, errors.Configuration("configuration cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		backend Backend
		err     error
	)
	switch cfg.DatabaseType {
	case config.DatabaseSQLite:
		backend, err = NewSqliteBackend(ctx, cfg.Sqlite)
	case config.DatabaseMongoDB:
		backend, err = NewMongoBackend(ctx, cfg.Mongo)
	case config.DatabaseMemory:
		backend = NewMemoryBackend()
	default:
		return nil, errors.Configurationf("unsupported database type: %s", cfg.DatabaseType)
	}
	if err != nil {
		return nil, err
	}

	logging.GetGlobalLogger("storage").InfoContext(ctx, "Storage backend selected",
		slog.String("database_type", cfg.DatabaseType),
	)

	return Instrument(backend, o.collector, cfg.DatabaseType), nil
}
