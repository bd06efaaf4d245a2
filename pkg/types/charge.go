package types

import "time"

// Priority controls how candidate slots are ranked.
type Priority string

const (
	PrioritySavings Priority = "Savings"
	// PrioritySpeed is currently ranked exactly like PrioritySavings.
	PrioritySpeed Priority = "Speed"
	PriorityGreen Priority = "Green"
)

// ChargeRequest is the input to the slot scheduler.
type ChargeRequest struct {
	UserID          string  `json:"user_id,omitempty"`
	EnergyNeededKWH float64 `json:"energy_needed"`
	// ReadyBy is either an ISO-8601 timestamp or a same-day "HH:MM".
	ReadyBy  string   `json:"ready_by"`
	Priority Priority `json:"priority"`
	Country  string   `json:"country,omitempty"`
}

// Slot is a single recommended charging window.
type Slot struct {
	Start         time.Time  `json:"start_time"`
	End           time.Time  `json:"end_time"`
	DurationHours float64    `json:"duration_hours"`
	Rate          float64    `json:"rate"`
	TotalCost     float64    `json:"total_cost"`
	Tier          TariffTier `json:"score"`
	Source        string     `json:"source"`
	Color         string     `json:"color"`
}

// ScheduleDebug carries the intermediate values used to build a schedule.
type ScheduleDebug struct {
	StartHour           time.Time `json:"start_hour"`
	ReadyBy             time.Time `json:"ready_by"`
	EnergyNeededKWH     float64   `json:"energy_needed"`
	TimeNeededHours     float64   `json:"time_needed_hours"`
	PotentialSlotsCount int       `json:"potential_slots_count"`
}

// ScheduleResult is always structurally valid. On failure Slots is empty, the
// amounts are zero and Error describes what went wrong.
type ScheduleResult struct {
	Slots        []Slot         `json:"slots"`
	TotalCost    float64        `json:"total_cost"`
	Savings      float64        `json:"savings"`
	Currency     string         `json:"currency"`
	CurrencyCode string         `json:"currency_code,omitempty"`
	Rate         float64        `json:"rate"`
	Error        string         `json:"error,omitempty"`
	Debug        *ScheduleDebug `json:"debug_info,omitempty"`
}
