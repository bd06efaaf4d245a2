package tariff

import (
	"fmt"
	"maps"
	"sort"

	"github.com/solarslot/solarslot/pkg/types"
)

// Base rates in INR per kWh.
const (
	BaseRateSolar    = 8.0
	BaseRateOffPeak  = 10.0
	BaseRatePeak     = 18.0
	BaseRateStandard = 13.0
)

// DefaultBands returns the time-of-use bands in evaluation order. The first
// band that contains an hour wins, so Standard must stay last.
func DefaultBands() []types.TariffBand {
	return []types.TariffBand{
		{
			Tier:     types.TierSolar,
			Name:     "Solar",
			Label:    "Solar (Green) ☀️",
			Color:    "green",
			BaseRate: BaseRateSolar,
			Hours:    []types.HourRange{{HourStart: 10, HourEnd: 16}},
		},
		{
			Tier:     types.TierOffPeak,
			Name:     "Off-Peak",
			Label:    "Off-Peak (Grid) 🌙",
			Color:    "blue",
			BaseRate: BaseRateOffPeak,
			Hours:    []types.HourRange{{HourStart: 22, HourEnd: 24}, {HourStart: 0, HourEnd: 6}},
		},
		{
			Tier:     types.TierPeak,
			Name:     "Peak",
			Label:    "Peak (High Demand) 🔴",
			Color:    "red",
			BaseRate: BaseRatePeak,
			Hours:    []types.HourRange{{HourStart: 18, HourEnd: 22}},
		},
		{
			Tier:     types.TierStandard,
			Name:     "Standard",
			Label:    "Standard Grid ⚡",
			Color:    "yellow",
			BaseRate: BaseRateStandard,
		},
	}
}

// Table is the process-wide tariff and currency configuration. It is read-only
// after construction and safe for concurrent use.
type Table struct {
	bands      []types.TariffBand
	currencies map[string]types.Currency
	peak       types.TariffBand
}

// NewTable builds a Table from bands (in evaluation order) and a currency map.
// Nil arguments use the defaults. The currency map must contain DefaultCountry
// and the last band must be a catch-all so classification is total.
func NewTable(bands []types.TariffBand, currencies map[string]types.Currency) (*Table, error) {
	if bands == nil {
		bands = DefaultBands()
	}
	if currencies == nil {
		currencies = defaultCurrencies
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("at least one tariff band is required")
	}
	if last := bands[len(bands)-1]; len(last.Hours) != 0 {
		return nil, fmt.Errorf("last tariff band (%s) must not have hour ranges", last.Name)
	}
	if _, ok := currencies[DefaultCountry]; !ok {
		return nil, fmt.Errorf("currency table is missing default country %s", DefaultCountry)
	}

	t := &Table{
		bands:      append([]types.TariffBand(nil), bands...),
		currencies: maps.Clone(currencies),
	}
	// the worst tier is the reference for savings estimates
	for i, b := range t.bands {
		if i == 0 || b.Tier > t.peak.Tier {
			t.peak = b
		}
	}
	return t, nil
}

// Classify returns the band for the given hour of day.
func (t *Table) Classify(hour int) types.TariffBand {
	for _, b := range t.bands {
		if b.Contains(hour) {
			return b
		}
	}
	// unreachable because NewTable requires a catch-all band
	return t.bands[len(t.bands)-1]
}

// PeakBand returns the band with the worst tier.
func (t *Table) PeakBand() types.TariffBand {
	return t.peak
}

// Bands returns a copy of the bands in evaluation order.
func (t *Table) Bands() []types.TariffBand {
	return append([]types.TariffBand(nil), t.bands...)
}

// Currency looks up display currency and conversion rate for a country,
// defaulting to DefaultCountry for empty or unknown names.
func (t *Table) Currency(country string) types.Currency {
	if c, ok := t.currencies[normalizeCountry(country)]; ok {
		return c
	}
	return t.currencies[DefaultCountry]
}

// Countries returns the known country names sorted alphabetically.
func (t *Table) Countries() []string {
	names := make([]string, 0, len(t.currencies))
	for n := range t.currencies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Rate converts a band's base rate into the currency of the given conversion.
func Rate(b types.TariffBand, c types.Currency) float64 {
	return b.BaseRate * c.Rate
}
