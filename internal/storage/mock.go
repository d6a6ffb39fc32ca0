package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

// MockBackend is a testify mock of Backend for handler and loader tests
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Create(ctx context.Context, in occupancy.RecordInput) (*occupancy.Record, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*occupancy.Record), args.Error(1)
}

func (m *MockBackend) Get(ctx context.Context, id string) (*occupancy.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*occupancy.Record), args.Error(1)
}

func (m *MockBackend) Query(ctx context.Context, q occupancy.Query) ([]occupancy.Record, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]occupancy.Record), args.Error(1)
}

func (m *MockBackend) ListAll(ctx context.Context) ([]occupancy.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]occupancy.Record), args.Error(1)
}

func (m *MockBackend) Health(ctx context.Context) (*occupancy.HealthStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*occupancy.HealthStatus), args.Error(1)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}
