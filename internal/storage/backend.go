// Package storage persists occupancy records behind a single Backend
// contract with SQLite, MongoDB and in-memory implementations.
package storage

import (
	"context"
	stderrors "errors"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

// Backend is the storage contract every implementation satisfies identically.
//
// Query and ListAll return records ordered by RecordDate ascending, ties in
// insertion order, and an empty non-nil slice when nothing matches.
type Backend interface {
	// Create validates the input, assigns an identity and persists it.
	// Invalid input yields a VALIDATION_* error and nothing is written.
	Create(ctx context.Context, in occupancy.RecordInput) (*occupancy.Record, error)
	// Get returns the record with the given id or RECORD_NOT_FOUND.
	Get(ctx context.Context, id string) (*occupancy.Record, error)
	Query(ctx context.Context, q occupancy.Query) ([]occupancy.Record, error)
	ListAll(ctx context.Context) ([]occupancy.Record, error)
	// Health reports reachability, record count and statistics. It fails
	// only when the store cannot be reached.
	Health(ctx context.Context) (*occupancy.HealthStatus, error)
	Close() error
}

// Backend names as reported in HealthStatus and metrics
const (
	BackendSQLite  = "sqlite"
	BackendMongoDB = "mongodb"
	BackendMemory  = "memory"
)

// contextError maps a context failure onto the error taxonomy. It returns
// nil when err is not a context error.
func contextError(err error) error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrCodeStorageTimeout, "storage operation timed out")
	case stderrors.Is(err, context.Canceled):
		return errors.Wrap(err, errors.ErrCodeContextCanceled, "storage operation canceled")
	}
	return nil
}

// checkContext returns a classified error if ctx is already done
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return contextError(ctx.Err())
	default:
		return nil
	}
}

// unreachable classifies a failed health ping. A done caller context is
// reported as such rather than as an outage.
func unreachable(ctx context.Context, err error, message string) error {
	if cerr := contextError(err); cerr != nil {
		return cerr
	}
	if cerr := contextError(ctx.Err()); cerr != nil {
		return cerr
	}
	return errors.Unavailable(err, message)
}

// summarize computes statistics over records held in memory
func summarize(records []occupancy.Record) occupancy.Statistics {
	stats := occupancy.Statistics{TotalRecords: int64(len(records))}
	if len(records) == 0 {
		return stats
	}

	hospitals := make(map[string]struct{})
	wards := make(map[string]struct{})
	var occupied, beds int64
	for _, r := range records {
		hospitals[r.HospitalID] = struct{}{}
		wards[r.WardID] = struct{}{}
		occupied += int64(r.OccupiedBeds)
		beds += int64(r.BedCount)
	}

	stats.UniqueHospitals = int64(len(hospitals))
	stats.UniqueWards = int64(len(wards))
	stats.AvgOccupiedBeds = float64(occupied) / float64(len(records))
	stats.AvgTotalBeds = float64(beds) / float64(len(records))
	return stats
}
