package types

import "time"

// SmartScheduleRequest asks for the best charger and slot near a location.
type SmartScheduleRequest struct {
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	EnergyNeededKWH float64 `json:"energy_needed"`
}

// SmartSlot is the window chosen on a particular charger.
type SmartSlot struct {
	Start      time.Time `json:"start_time"`
	End        time.Time `json:"end_time"`
	Efficiency float64   `json:"efficiency"`
	Weather    Weather   `json:"weather"`
}

// CompositeCandidate is a charger together with its best open slot. Lower
// scores are better.
type CompositeCandidate struct {
	Charger    Charger   `json:"charger"`
	BestSlot   SmartSlot `json:"best_slot"`
	DistanceKM float64   `json:"distance_km"`
	Score      float64   `json:"score"`
}

// SmartSchedule is the result of the composite selection.
type SmartSchedule struct {
	CompositeCandidate
	NearestChargerID string  `json:"nearest_charger_id"`
	EstimatedCost    float64 `json:"estimated_cost"`
	Considered       int     `json:"considered"`
}
