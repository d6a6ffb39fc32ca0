package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

// MemoryBackend keeps records in process memory. It is used for development
// and tests and loses everything on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	records []occupancy.Record // insertion order
	byID    map[string]int
	logger  *slog.Logger
}

// NewMemoryBackend creates a new memory-based storage backend
func NewMemoryBackend() *MemoryBackend {
	logger := logging.GetGlobalLogger("storage.memory")

	logger.Info("Creating memory backend")

	return &MemoryBackend{
		byID:   make(map[string]int),
		logger: logger,
	}
}

// Create validates and appends a record
func (m *MemoryBackend) Create(ctx context.Context, in occupancy.RecordInput) (rec *occupancy.Record, err error) {
	timer := logging.StartTimer(ctx, m.logger, "memory.create")
	defer func() { timer.EndWithError(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	prepared, err := in.Prepare()
	if err != nil {
		m.logger.DebugContext(ctx, "Rejected invalid record",
			slog.String("hospital_id", in.HospitalID),
			slog.String("ward_id", in.WardID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	record := prepared.ToRecord(uuid.NewString())

	m.mu.Lock()
	m.byID[record.ID] = len(m.records)
	m.records = append(m.records, record)
	total := len(m.records)
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "Record stored in memory",
		slog.String("id", record.ID),
		slog.String("hospital_id", record.HospitalID),
		slog.String("ward_id", record.WardID),
		slog.Int("total_records", total),
	)

	return &record, nil
}

// Get returns a record by id
func (m *MemoryBackend) Get(ctx context.Context, id string) (*occupancy.Record, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byID[id]
	if !ok {
		return nil, errors.NotFound("occupancy record " + id)
	}
	record := m.records[idx]
	return &record, nil
}

// Query returns the matching records in date order
func (m *MemoryBackend) Query(ctx context.Context, q occupancy.Query) (results []occupancy.Record, err error) {
	timer := logging.StartTimer(ctx, m.logger, "memory.query")
	defer func() { timer.EndWithError(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	q, err = q.Prepare()
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	results = make([]occupancy.Record, 0)
	for _, r := range m.records {
		if q.Matches(r) {
			results = append(results, r)
		}
	}
	m.mu.RUnlock()

	sortByDate(results)
	return results, nil
}

// ListAll returns every record in date order
func (m *MemoryBackend) ListAll(ctx context.Context) ([]occupancy.Record, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	results := make([]occupancy.Record, len(m.records))
	copy(results, m.records)
	m.mu.RUnlock()

	sortByDate(results)
	return results, nil
}

// Health always reports a reachable store
func (m *MemoryBackend) Health(ctx context.Context) (*occupancy.HealthStatus, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	stats := summarize(m.records)
	m.mu.RUnlock()

	return &occupancy.HealthStatus{
		Backend:     BackendMemory,
		Status:      occupancy.StatusConnected,
		Reachable:   true,
		RecordCount: stats.TotalRecords,
		Statistics:  stats,
		CheckedAt:   time.Now().UTC(),
	}, nil
}

// Close closes the memory backend (no-op)
func (m *MemoryBackend) Close() error {
	return nil
}

// sortByDate orders records by RecordDate; the stable sort keeps insertion
// order for equal dates.
func sortByDate(records []occupancy.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RecordDate.Before(records[j].RecordDate)
	})
}
