package storagemock

import (
	"context"
	"time"

	"github.com/solarslot/solarslot/pkg/storage"
	"github.com/solarslot/solarslot/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) ListChargers(ctx context.Context, exclude ...types.ChargerStatus) ([]types.Charger, error) {
	args := m.Called(ctx, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Charger), args.Error(1)
}

func (m *MockDatabase) GetCharger(ctx context.Context, chargerID string) (types.Charger, error) {
	args := m.Called(ctx, chargerID)
	return args.Get(0).(types.Charger), args.Error(1)
}

func (m *MockDatabase) AddCharger(ctx context.Context, charger types.Charger) (types.Charger, error) {
	args := m.Called(ctx, charger)
	return args.Get(0).(types.Charger), args.Error(1)
}

func (m *MockDatabase) FindOverlaps(ctx context.Context, chargerID string, start, end time.Time) ([]types.Booking, error) {
	args := m.Called(ctx, chargerID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Booking), args.Error(1)
}

func (m *MockDatabase) IsAvailable(ctx context.Context, chargerID string, at time.Time) (bool, error) {
	args := m.Called(ctx, chargerID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockDatabase) CreateBooking(ctx context.Context, booking types.Booking) (types.Booking, error) {
	args := m.Called(ctx, booking)
	return args.Get(0).(types.Booking), args.Error(1)
}

func (m *MockDatabase) CancelBooking(ctx context.Context, bookingID, userID string) error {
	args := m.Called(ctx, bookingID, userID)
	return args.Error(0)
}

func (m *MockDatabase) ListUserBookings(ctx context.Context, userID string, now time.Time, limit int) ([]types.Booking, error) {
	args := m.Called(ctx, userID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Booking), args.Error(1)
}

func (m *MockDatabase) ClearHistory(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
