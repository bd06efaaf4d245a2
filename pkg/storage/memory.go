package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/solarslot/solarslot/pkg/types"
)

// Memory is a process-local Database for development and tests. A single
// mutex serializes writers so CreateBooking is atomic.
type Memory struct {
	mu       sync.RWMutex
	chargers []types.Charger
	bookings map[string]types.Booking
	order    []string
	now      func() time.Time
}

var _ Database = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		bookings: make(map[string]types.Booking),
		now:      time.Now,
	}
}

// ListChargers implements Database.
func (m *Memory) ListChargers(ctx context.Context, exclude ...types.ChargerStatus) ([]types.Charger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var chargers []types.Charger
	for _, c := range m.chargers {
		if !excluded(c, exclude) {
			chargers = append(chargers, c)
		}
	}
	return chargers, nil
}

// GetCharger implements Database.
func (m *Memory) GetCharger(ctx context.Context, chargerID string) (types.Charger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCharger(chargerID)
}

func (m *Memory) getCharger(chargerID string) (types.Charger, error) {
	for _, c := range m.chargers {
		if c.ID == chargerID {
			return c, nil
		}
	}
	return types.Charger{}, ErrChargerNotFound
}

// AddCharger implements Database.
func (m *Memory) AddCharger(ctx context.Context, charger types.Charger) (types.Charger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if charger.ID == "" {
		charger.ID = uuid.NewString()
	}
	if charger.Status == "" {
		charger.Status = types.ChargerStatusAvailable
	}
	if _, err := m.getCharger(charger.ID); err == nil {
		return types.Charger{}, fmt.Errorf("charger %s already exists", charger.ID)
	}
	m.chargers = append(m.chargers, charger)
	return charger, nil
}

// FindOverlaps implements Database.
func (m *Memory) FindOverlaps(ctx context.Context, chargerID string, start, end time.Time) ([]types.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findOverlaps(chargerID, start, end), nil
}

func (m *Memory) findOverlaps(chargerID string, start, end time.Time) []types.Booking {
	var overlaps []types.Booking
	for _, id := range m.order {
		b := m.bookings[id]
		if b.ChargerID == chargerID && blocking(b, start, end) {
			overlaps = append(overlaps, b)
		}
	}
	return overlaps
}

// IsAvailable implements Database.
func (m *Memory) IsAvailable(ctx context.Context, chargerID string, at time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.getCharger(chargerID)
	if err != nil || c.Status == types.ChargerStatusMaintenance {
		return false, nil
	}
	for _, id := range m.order {
		b := m.bookings[id]
		if b.ChargerID == chargerID && active(b, at) {
			return false, nil
		}
	}
	return true, nil
}

// CreateBooking implements Database.
func (m *Memory) CreateBooking(ctx context.Context, booking types.Booking) (types.Booking, error) {
	if err := validateBooking(booking); err != nil {
		return types.Booking{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.getCharger(booking.ChargerID)
	if err != nil {
		return types.Booking{}, err
	}
	if c.Status == types.ChargerStatusMaintenance {
		return types.Booking{}, ErrChargerUnavailable
	}
	if len(m.findOverlaps(booking.ChargerID, booking.Start, booking.End)) > 0 {
		return types.Booking{}, ErrBookingConflict
	}

	booking.ID = uuid.NewString()
	booking.Status = types.BookingStatusConfirmed
	booking.CreatedAt = m.now()
	m.bookings[booking.ID] = booking
	m.order = append(m.order, booking.ID)
	return booking, nil
}

// CancelBooking implements Database.
func (m *Memory) CancelBooking(ctx context.Context, bookingID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || (userID != "" && b.UserID != userID) {
		return ErrBookingNotFound
	}
	b.Status = types.BookingStatusCancelled
	m.bookings[bookingID] = b
	return nil
}

// setBookingStatus overwrites a booking's status. Bookings become Completed
// outside this service.
func (m *Memory) setBookingStatus(bookingID string, status types.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = status
	m.bookings[bookingID] = b
	return nil
}

// ListUserBookings implements Database.
func (m *Memory) ListUserBookings(ctx context.Context, userID string, now time.Time, limit int) ([]types.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bookings []types.Booking
	for _, id := range m.order {
		b := m.bookings[id]
		if b.UserID == userID && !b.End.Before(now) {
			bookings = append(bookings, b)
		}
	}
	return upcoming(bookings, limit), nil
}

// ClearHistory implements Database.
func (m *Memory) ClearHistory(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	var deleted int
	for _, id := range m.order {
		b := m.bookings[id]
		if b.UserID == userID && clearable(b) {
			delete(m.bookings, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return deleted, nil
}

// Close implements Database.
func (m *Memory) Close() error {
	return nil
}
