package storage

import (
	"context"
	"time"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

// InstrumentedBackend records a Prometheus sample for every call to the
// wrapped Backend.
type InstrumentedBackend struct {
	next      Backend
	name      string
	collector *logging.MetricsCollector
}

// Instrument wraps next; with a nil collector next is returned unchanged
func Instrument(next Backend, collector *logging.MetricsCollector, name string) Backend {
	if collector == nil {
		return next
	}
	return &InstrumentedBackend{next: next, name: name, collector: collector}
}

// Unwrap returns the wrapped backend
func (b *InstrumentedBackend) Unwrap() Backend {
	return b.next
}

func (b *InstrumentedBackend) observe(operation string, start time.Time, err error) {
	b.collector.RecordStorageOperation(b.name, operation, outcome(err), time.Since(start))
}

// outcome labels an operation result for metrics
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.IsValidation(err):
		return "validation"
	case errors.IsNotFound(err):
		return "not_found"
	case errors.IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}

func (b *InstrumentedBackend) Create(ctx context.Context, in occupancy.RecordInput) (*occupancy.Record, error) {
	start := time.Now()
	rec, err := b.next.Create(ctx, in)
	b.observe("create", start, err)
	return rec, err
}

func (b *InstrumentedBackend) Get(ctx context.Context, id string) (*occupancy.Record, error) {
	start := time.Now()
	rec, err := b.next.Get(ctx, id)
	b.observe("get", start, err)
	return rec, err
}

func (b *InstrumentedBackend) Query(ctx context.Context, q occupancy.Query) ([]occupancy.Record, error) {
	start := time.Now()
	records, err := b.next.Query(ctx, q)
	b.observe("query", start, err)
	return records, err
}

func (b *InstrumentedBackend) ListAll(ctx context.Context) ([]occupancy.Record, error) {
	start := time.Now()
	records, err := b.next.ListAll(ctx)
	b.observe("list_all", start, err)
	return records, err
}

func (b *InstrumentedBackend) Health(ctx context.Context) (*occupancy.HealthStatus, error) {
	start := time.Now()
	status, err := b.next.Health(ctx)
	b.observe("health", start, err)
	return status, err
}

func (b *InstrumentedBackend) Close() error {
	return b.next.Close()
}
