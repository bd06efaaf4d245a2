package types

// TariffTier is the ordinal desirability of a tariff band. Lower is better.
type TariffTier int

const (
	TierSolar    TariffTier = 1
	TierOffPeak  TariffTier = 2
	TierStandard TariffTier = 3
	TierPeak     TariffTier = 4
)

func (t TariffTier) String() string {
	switch t {
	case TierSolar:
		return "solar"
	case TierOffPeak:
		return "offpeak"
	case TierStandard:
		return "standard"
	case TierPeak:
		return "peak"
	default:
		return "unknown"
	}
}

// HourRange is a half-open [HourStart, HourEnd) range of hours of the day.
type HourRange struct {
	HourStart int `json:"hourStart"`
	HourEnd   int `json:"hourEnd"`
}

// Contains reports whether hour falls inside the range.
func (r HourRange) Contains(hour int) bool {
	return hour >= r.HourStart && hour < r.HourEnd
}

// TariffBand is a named time-of-day band with a per-kWh base rate expressed in
// the reference currency (INR).
type TariffBand struct {
	Tier     TariffTier  `json:"tier"`
	Name     string      `json:"name"`
	Label    string      `json:"label"`
	Color    string      `json:"color"`
	BaseRate float64     `json:"baseRate"`
	Hours    []HourRange `json:"hours"`
}

// Contains reports whether hour falls in any of the band's ranges. A band with
// no ranges matches every hour and is used as the catch-all.
func (b TariffBand) Contains(hour int) bool {
	if len(b.Hours) == 0 {
		return true
	}
	for _, r := range b.Hours {
		if r.Contains(hour) {
			return true
		}
	}
	return false
}

// Currency describes how reference-currency amounts are shown for a country.
type Currency struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
}
