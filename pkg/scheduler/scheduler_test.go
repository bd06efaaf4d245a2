package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
	"github.com/solarslot/solarslot/pkg/tariff"
	"github.com/solarslot/solarslot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

func mustKolkata(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func newTestScheduler(t *testing.T, now time.Time) *Scheduler {
	table, err := tariff.NewTable(nil, nil)
	require.NoError(t, err)
	s := New(table, Options{Location: now.Location()})
	s.now = func() time.Time { return now }
	return s
}

func TestScheduleEveningPeak(t *testing.T) {
	loc := mustKolkata(t)
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, loc)
	s := newTestScheduler(t, now)

	res := s.Schedule(context.Background(), types.ChargeRequest{
		EnergyNeededKWH: 20,
		ReadyBy:         "23:00",
		Priority:        types.PrioritySavings,
		Country:         "India",
	})
	require.Empty(t, res.Error)
	require.NotNil(t, res.Debug)

	// 18:00, 19:00 and 20:00 all finish by 23:00, 21:00 would not
	assert.Equal(t, 3, res.Debug.PotentialSlotsCount)
	assert.Equal(t, time.Date(2026, 3, 10, 18, 0, 0, 0, loc), res.Debug.StartHour)
	assert.Equal(t, time.Date(2026, 3, 10, 23, 0, 0, 0, loc), res.Debug.ReadyBy)
	require.Len(t, res.Slots, 3)
	for i, slot := range res.Slots {
		assert.Equal(t, types.TierPeak, slot.Tier)
		assert.Equal(t, "red", slot.Color)
		assert.InDelta(t, 360, slot.TotalCost, 1e-9)
		assert.Equal(t, 18+i, slot.Start.Hour(), "equal costs keep chronological order")
	}
	assert.InDelta(t, 0, res.Savings, 1e-9)
	assert.Equal(t, "₹", res.Currency)
	assert.Equal(t, "INR", res.CurrencyCode)
	assert.Equal(t, 1.0, res.Rate)
}

func TestScheduleAvoidsPeakWhenPossible(t *testing.T) {
	loc := mustKolkata(t)
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, loc)
	s := newTestScheduler(t, now)

	res := s.Schedule(context.Background(), types.ChargeRequest{
		EnergyNeededKWH: 20,
		ReadyBy:         "01:00",
		Priority:        types.PrioritySavings,
		Country:         "India",
	})
	require.Empty(t, res.Error)
	require.NotEmpty(t, res.Slots)

	best := res.Slots[0]
	assert.Equal(t, types.TierOffPeak, best.Tier)
	assert.Equal(t, time.Date(2026, 3, 10, 22, 0, 0, 0, loc), best.Start)
	assert.Equal(t, "Off-Peak (Grid) 🌙", best.Source)
	assert.InDelta(t, 200, best.TotalCost, 1e-9)
	assert.InDelta(t, 200, res.TotalCost, 1e-9)
	assert.InDelta(t, 160, res.Savings, 1e-9)
}

func TestScheduleSlotShape(t *testing.T) {
	loc := mustKolkata(t)
	now := time.Date(2026, 3, 10, 9, 37, 12, 0, loc)
	s := newTestScheduler(t, now)

	for _, energy := range []float64{0.5, 7, 10, 20, 33.3, 60} {
		for _, priority := range []types.Priority{types.PrioritySavings, types.PrioritySpeed, types.PriorityGreen} {
			res := s.Schedule(context.Background(), types.ChargeRequest{
				EnergyNeededKWH: energy,
				ReadyBy:         "2026-03-12T08:00:00+05:30",
				Priority:        priority,
			})
			require.Empty(t, res.Error)
			require.NotEmpty(t, res.Slots)
			assert.LessOrEqual(t, len(res.Slots), 3)

			hours := energy / DefaultChargerKW
			for _, slot := range res.Slots {
				assert.InDelta(t, hours, slot.DurationHours, 1e-9)
				assert.InDelta(t, hours, slot.End.Sub(slot.Start).Hours(), 1e-6)
				assert.Zero(t, slot.Start.Minute())
				assert.Zero(t, slot.Start.Second())
				assert.True(t, slot.Start.After(now))
				assert.False(t, slot.End.After(res.Debug.ReadyBy))
				assert.InDelta(t, slot.Rate*energy, slot.TotalCost, 1e-9)
			}

			peak := tariff.BaseRatePeak * energy
			assert.InDelta(t, peak-res.Slots[0].TotalCost, res.Savings, 1e-6)
			assert.GreaterOrEqual(t, res.Savings, 0.0)

			if priority != types.PriorityGreen {
				for i := 1; i < len(res.Slots); i++ {
					assert.LessOrEqual(t, res.Slots[i-1].TotalCost, res.Slots[i].TotalCost)
				}
			}
		}
	}
}

func TestScheduleGreenPrefersCleanerTier(t *testing.T) {
	bands := tariff.DefaultBands()
	// make off-peak grid power cheaper than solar
	bands[0].BaseRate = 12
	bands[1].BaseRate = 5
	table, err := tariff.NewTable(bands, nil)
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	s := New(table, Options{Location: time.UTC})
	s.now = func() time.Time { return now }

	req := types.ChargeRequest{EnergyNeededKWH: 7, ReadyBy: "2026-03-11T08:00:00Z", Country: "India"}

	req.Priority = types.PrioritySavings
	savings := s.Schedule(context.Background(), req)
	require.NotEmpty(t, savings.Slots)
	assert.Equal(t, types.TierOffPeak, savings.Slots[0].Tier)
	assert.Equal(t, 22, savings.Slots[0].Start.Hour())

	req.Priority = types.PriorityGreen
	green := s.Schedule(context.Background(), req)
	require.Len(t, green.Slots, 3)
	for i, slot := range green.Slots {
		assert.Equal(t, types.TierSolar, slot.Tier)
		assert.Equal(t, 10+i, slot.Start.Hour())
	}
	assert.InDelta(t, 18*7-12*7, green.Savings, 1e-9)

	// unknown priorities and casing fall back sensibly
	req.Priority = "green"
	assert.Equal(t, green.Slots, s.Schedule(context.Background(), req).Slots)
	req.Priority = "Cheapest"
	assert.Equal(t, savings.Slots, s.Schedule(context.Background(), req).Slots)
}

func TestScheduleInfeasible(t *testing.T) {
	now := time.Date(2026, 3, 10, 17, 10, 0, 0, time.UTC)
	s := newTestScheduler(t, now)

	res := s.Schedule(context.Background(), types.ChargeRequest{
		EnergyNeededKWH: 14,
		ReadyBy:         "2026-03-10T19:30:00Z",
	})
	assert.Empty(t, res.Error)
	assert.Empty(t, res.Slots)
	assert.NotNil(t, res.Slots)
	assert.Zero(t, res.TotalCost)
	assert.Zero(t, res.Savings)
	assert.Equal(t, 0, res.Debug.PotentialSlotsCount)
}

func TestScheduleInvalidEnergy(t *testing.T) {
	s := newTestScheduler(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	for _, energy := range []float64{0, -5} {
		res := s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: energy, ReadyBy: "18:00"})
		assert.NotEmpty(t, res.Error)
		assert.Empty(t, res.Slots)
		assert.Zero(t, res.TotalCost)
		assert.Zero(t, res.Savings)
		assert.Nil(t, res.Debug)
	}
}

func TestScheduleMalformedDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 15, 0, 0, time.UTC)
	s := newTestScheduler(t, now)

	res := s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: 7, ReadyBy: "tomorrow-ish"})
	require.Empty(t, res.Error)
	assert.Equal(t, now.Add(24*time.Hour), res.Debug.ReadyBy)
	// 13:00 through 11:00 the next day
	assert.Equal(t, 23, res.Debug.PotentialSlotsCount)
}

func TestScheduleCurrency(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := newTestScheduler(t, now)

	t.Run("UnknownCountry", func(t *testing.T) {
		res := s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: 7, ReadyBy: "20:00", Country: "Atlantis"})
		require.Empty(t, res.Error)
		assert.Equal(t, "₹", res.Currency)
		assert.Equal(t, "INR", res.CurrencyCode)
		assert.Equal(t, 1.0, res.Rate)
		assert.InDelta(t, 56, res.TotalCost, 1e-9)
	})

	t.Run("Converted", func(t *testing.T) {
		res := s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: 7, ReadyBy: "20:00", Country: "USA"})
		require.Empty(t, res.Error)
		assert.Equal(t, "$", res.Currency)
		assert.Equal(t, "USD", res.CurrencyCode)
		assert.InDelta(t, 8*0.012, res.Slots[0].Rate, 1e-12)
		assert.InDelta(t, 8*0.012*7, res.TotalCost, 1e-12)
		assert.InDelta(t, (18-8)*0.012*7, res.Savings, 1e-12)
	})
}

func TestScheduleChargerKW(t *testing.T) {
	table, err := tariff.NewTable(nil, nil)
	require.NoError(t, err)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := New(table, Options{ChargerKW: 11, Location: time.UTC})
	s.now = func() time.Time { return now }
	assert.Equal(t, 11.0, s.chargerKW)

	res := s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: 22, ReadyBy: "20:00"})
	require.NotEmpty(t, res.Slots)
	assert.InDelta(t, 2, res.Slots[0].DurationHours, 1e-9)
	assert.Equal(t, 2*time.Hour, res.Slots[0].End.Sub(res.Slots[0].Start))

	assert.Equal(t, DefaultChargerKW, New(table, Options{}).chargerKW)
}

func TestScheduleCandidateCap(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := newTestScheduler(t, now)

	res := s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: 7, ReadyBy: "2027-03-10T08:00:00Z"})
	require.Empty(t, res.Error)
	assert.Equal(t, maxCandidates, res.Debug.PotentialSlotsCount)
	// still the first solar hours
	assert.Equal(t, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), res.Slots[0].Start)
}

func TestScheduleRecoversPanics(t *testing.T) {
	s := New(nil, Options{Location: time.UTC})
	res := s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: 7, ReadyBy: "20:00"})
	assert.Contains(t, res.Error, "internal error")
	assert.NotNil(t, res.Slots)
	assert.Empty(t, res.Slots)
	assert.Zero(t, res.Savings)
}

func TestScheduleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	require.NoError(t, err)

	table, err := tariff.NewTable(nil, nil)
	require.NoError(t, err)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := New(table, Options{Location: time.UTC, Metrics: rec})
	s.now = func() time.Time { return now }

	s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: 7, ReadyBy: "20:00", Priority: types.PriorityGreen})
	s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: 7, ReadyBy: "08:30"})
	s.Schedule(context.Background(), types.ChargeRequest{EnergyNeededKWH: -1})

	count, err := testutil.GatherAndCount(reg, "solarslot_schedules_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
