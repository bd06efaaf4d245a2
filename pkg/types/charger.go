package types

import "time"

// ChargerStatus is the operational status of a charger.
type ChargerStatus string

const (
	ChargerStatusAvailable   ChargerStatus = "Available"
	ChargerStatusBusy        ChargerStatus = "Busy"
	ChargerStatusMaintenance ChargerStatus = "Maintenance"
)

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultLocation is central Bangalore. It stands in for requests and
// chargers that carry no location.
var DefaultLocation = Location{Lat: 12.9716, Lng: 77.5946}

// IsZero reports whether l is the unset (0, 0) coordinate.
func (l Location) IsZero() bool {
	return l.Lat == 0 && l.Lng == 0
}

// Charger is a charging station that can be booked.
type Charger struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Location   Location      `json:"location"`
	CostPerKWH float64       `json:"cost_per_kwh"`
	PowerKW    float64       `json:"power_kw,omitempty"`
	Status     ChargerStatus `json:"status"`
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCompleted BookingStatus = "Completed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// Booking reserves a charger for [Start, End).
type Booking struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	ChargerID string        `json:"charger_id"`
	Start     time.Time     `json:"start_time"`
	End       time.Time     `json:"end_time"`
	EnergyKWH float64       `json:"energy_kwh"`
	TotalCost float64       `json:"total_cost"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// Overlaps reports whether the booking's interval intersects [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.Start, b.End, start, end)
}

// Overlaps reports whether [s1, e1) and [s2, e2) intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
