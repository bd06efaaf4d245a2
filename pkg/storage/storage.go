package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/solarslot/solarslot/pkg/types"
)

var (
	ErrChargerNotFound    = errors.New("charger not found")
	ErrChargerUnavailable = errors.New("charger is under maintenance")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrBookingConflict    = errors.New("this time slot is already occupied")
)

// DefaultBookingsLimit is how many upcoming bookings are listed by default.
const DefaultBookingsLimit = 5

// Database defines the interface for persisting chargers and bookings.
type Database interface {
	// Chargers
	// ListChargers returns chargers in the order they were added, skipping any
	// whose status is in exclude.
	ListChargers(ctx context.Context, exclude ...types.ChargerStatus) ([]types.Charger, error)
	GetCharger(ctx context.Context, chargerID string) (types.Charger, error)
	// AddCharger stores a new charger, assigning an ID if it has none.
	AddCharger(ctx context.Context, charger types.Charger) (types.Charger, error)

	// Bookings
	// FindOverlaps returns non-cancelled bookings on the charger that overlap
	// [start, end).
	FindOverlaps(ctx context.Context, chargerID string, start, end time.Time) ([]types.Booking, error)
	// IsAvailable reports whether the charger exists, isn't under maintenance
	// and has no confirmed booking covering at.
	IsAvailable(ctx context.Context, chargerID string, at time.Time) (bool, error)
	// CreateBooking atomically checks for overlaps and inserts the booking as
	// Confirmed. It returns ErrBookingConflict if the slot is taken.
	CreateBooking(ctx context.Context, booking types.Booking) (types.Booking, error)
	// CancelBooking marks the booking Cancelled. A non-empty userID must match
	// the booking's owner.
	CancelBooking(ctx context.Context, bookingID, userID string) error
	// ListUserBookings returns the user's bookings ending at or after now,
	// earliest first.
	ListUserBookings(ctx context.Context, userID string, now time.Time, limit int) ([]types.Booking, error)
	// ClearHistory deletes the user's Completed and Cancelled bookings and
	// returns how many were removed.
	ClearHistory(ctx context.Context, userID string) (int, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, memory)")

	var p configured

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

// configured defers the choice of provider until flags are parsed.
type configured struct {
	Database
}

// Persistent reports whether db keeps its data after the process exits.
func Persistent(db Database) bool {
	if c, ok := db.(*configured); ok {
		db = c.Database
	}
	_, inMemory := db.(*Memory)
	return !inMemory
}

// validateBooking checks the fields every provider requires before insert.
func validateBooking(b types.Booking) error {
	if b.ChargerID == "" {
		return fmt.Errorf("charger_id is required")
	}
	if b.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if !b.End.After(b.Start) {
		return fmt.Errorf("end_time (%s) must be after start_time (%s)", b.End.Format(time.RFC3339), b.Start.Format(time.RFC3339))
	}
	return nil
}

func excluded(c types.Charger, exclude []types.ChargerStatus) bool {
	return slices.Contains(exclude, c.Status)
}

// blocking reports whether b occupies its charger during [start, end).
func blocking(b types.Booking, start, end time.Time) bool {
	return b.Status != types.BookingStatusCancelled && b.Overlaps(start, end)
}

// active reports whether b is a confirmed booking covering at.
func active(b types.Booking, at time.Time) bool {
	return b.Status == types.BookingStatusConfirmed && !b.Start.After(at) && b.End.After(at)
}

func clearable(b types.Booking) bool {
	return b.Status == types.BookingStatusCompleted || b.Status == types.BookingStatusCancelled
}

// upcoming sorts bookings by start and applies the limit.
func upcoming(bookings []types.Booking, limit int) []types.Booking {
	if limit <= 0 {
		limit = DefaultBookingsLimit
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].Start.Before(bookings[j].Start)
	})
	return bookings[:min(limit, len(bookings))]
}
