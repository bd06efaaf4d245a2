package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
	"github.com/solarslot/solarslot/pkg/tariff"
	"github.com/solarslot/solarslot/pkg/types"
)

const (
	// DefaultChargerKW is a typical level 2 home charger.
	DefaultChargerKW = 7.0

	// maxRecommendations is how many slots are returned.
	maxRecommendations = 3

	// maxCandidates bounds enumeration for far-away deadlines. Tariff bands
	// repeat daily so later candidates can never beat earlier ones.
	maxCandidates = 7 * 24

	// fallbackDeadline is used when ready_by cannot be parsed.
	fallbackDeadline = 24 * time.Hour
)

// Options configures a Scheduler.
type Options struct {
	ChargerKW float64
	Location  *time.Location
	Metrics   *metrics.Recorder
}

// Scheduler recommends hour-aligned charging windows using a time-of-use
// tariff table. It is safe for concurrent use.
type Scheduler struct {
	table     *tariff.Table
	chargerKW float64
	loc       *time.Location
	metrics   *metrics.Recorder
	now       func() time.Time
}

// New returns a Scheduler. Zero options use DefaultChargerKW and time.Local.
func New(table *tariff.Table, opts Options) *Scheduler {
	s := &Scheduler{
		table:     table,
		chargerKW: opts.ChargerKW,
		loc:       opts.Location,
		metrics:   opts.Metrics,
		now:       time.Now,
	}
	if s.chargerKW <= 0 {
		s.chargerKW = DefaultChargerKW
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Schedule returns up to three recommended slots for req. It never fails:
// invalid input and internal errors produce an empty result with Error set and
// an infeasible deadline produces an empty result without an error.
func (s *Scheduler) Schedule(ctx context.Context, req types.ChargeRequest) (res types.ScheduleResult) {
	priority := normalizePriority(req.Priority)
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).ErrorContext(ctx, "panic while scheduling", slog.Any("panic", r))
			res = errorResult(fmt.Sprintf("internal error: %v", r))
		}
		s.metrics.Schedule(strings.ToLower(string(priority)), outcome(res))
	}()

	energy := req.EnergyNeededKWH
	if energy <= 0 || math.IsNaN(energy) || math.IsInf(energy, 0) {
		return errorResult(fmt.Sprintf("energy_needed must be a positive number of kWh, got %v", energy))
	}

	now := s.now().In(s.loc)
	currency := s.table.Currency(req.Country)

	readyBy, err := ResolveDeadline(req.ReadyBy, now)
	if err != nil {
		readyBy = now.Add(fallbackDeadline)
		log.Ctx(ctx).WarnContext(
			ctx,
			"failed to parse ready_by, defaulting",
			slog.String("readyBy", req.ReadyBy),
			slog.Time("fallback", readyBy),
			slog.Any("error", err),
		)
	}

	hours := energy / s.chargerKW
	duration := time.Duration(hours * float64(time.Hour))
	startHour := truncateHour(now).Add(time.Hour)

	log.Ctx(ctx).DebugContext(
		ctx,
		"scheduling charge",
		slog.String("country", req.Country),
		slog.String("currency", currency.Code),
		slog.Float64("energyKWH", energy),
		slog.Float64("hoursNeeded", hours),
		slog.Time("startHour", startHour),
		slog.Time("readyBy", readyBy),
	)

	candidates := make([]types.Slot, 0)
	for t := startHour; !t.Add(duration).After(readyBy) && len(candidates) < maxCandidates; t = t.Add(time.Hour) {
		band := s.table.Classify(t.Hour())
		rate := tariff.Rate(band, currency)
		candidates = append(candidates, types.Slot{
			Start:         t,
			End:           t.Add(duration),
			DurationHours: hours,
			Rate:          rate,
			TotalCost:     rate * energy,
			Tier:          band.Tier,
			Source:        band.Label,
			Color:         band.Color,
		})
	}

	rank(candidates, priority)
	slots := candidates[:min(len(candidates), maxRecommendations)]

	res = types.ScheduleResult{
		Slots:        slots,
		Currency:     currency.Symbol,
		CurrencyCode: currency.Code,
		Rate:         currency.Rate,
		Debug: &types.ScheduleDebug{
			StartHour:           startHour,
			ReadyBy:             readyBy,
			EnergyNeededKWH:     energy,
			TimeNeededHours:     hours,
			PotentialSlotsCount: len(candidates),
		},
	}
	if len(slots) > 0 {
		res.TotalCost = slots[0].TotalCost
		res.Savings = tariff.Rate(s.table.PeakBand(), currency)*energy - slots[0].TotalCost
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"scheduled charge",
		slog.Int("candidates", len(candidates)),
		slog.Int("recommended", len(slots)),
		slog.Float64("totalCost", res.TotalCost),
		slog.Float64("savings", res.Savings),
	)
	return res
}

// rank orders candidates in place. Green prefers cleaner tiers and then cost,
// everything else is cheapest first. Ties keep chronological order.
func rank(slots []types.Slot, priority types.Priority) {
	if priority == types.PriorityGreen {
		sort.SliceStable(slots, func(i, j int) bool {
			if slots[i].Tier != slots[j].Tier {
				return slots[i].Tier < slots[j].Tier
			}
			return slots[i].TotalCost < slots[j].TotalCost
		})
		return
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].TotalCost < slots[j].TotalCost
	})
}

func normalizePriority(p types.Priority) types.Priority {
	switch {
	case strings.EqualFold(string(p), string(types.PriorityGreen)):
		return types.PriorityGreen
	case strings.EqualFold(string(p), string(types.PrioritySpeed)):
		return types.PrioritySpeed
	default:
		return types.PrioritySavings
	}
}

func errorResult(msg string) types.ScheduleResult {
	return types.ScheduleResult{
		Slots: []types.Slot{},
		Error: msg,
	}
}

func outcome(res types.ScheduleResult) string {
	switch {
	case res.Error != "":
		return "error"
	case len(res.Slots) == 0:
		return "infeasible"
	default:
		return "ok"
	}
}

func truncateHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
