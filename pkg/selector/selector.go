package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
	"github.com/solarslot/solarslot/pkg/types"
	"golang.org/x/sync/errgroup"
)

// ErrNoOption is returned when no charger has a free slot in the horizon.
var ErrNoOption = errors.New("could not find any available slot across all chargers")

const (
	DefaultSlotDuration = 2 * time.Hour
	DefaultHorizonHours = 24
	DefaultParallelism  = 8
	// DefaultEnergyKWH is assumed when the request doesn't say how much
	// energy is needed.
	DefaultEnergyKWH = 20.0
)

// ChargerDirectory lists chargers.
type ChargerDirectory interface {
	ListChargers(ctx context.Context, exclude ...types.ChargerStatus) ([]types.Charger, error)
}

// BookingStore finds bookings that block a charger.
type BookingStore interface {
	FindOverlaps(ctx context.Context, chargerID string, start, end time.Time) ([]types.Booking, error)
}

// ForecastSource produces hourly solar forecasts.
type ForecastSource interface {
	Forecast(ctx context.Context, lat, lng float64, hoursAhead int) []types.ForecastPoint
}

// Weights are the coefficients of the composite score
// distance*Distance + cost*Cost - efficiency*Efficiency. Lower scores win.
type Weights struct {
	Distance   float64 `json:"distance"`
	Cost       float64 `json:"cost"`
	Efficiency float64 `json:"efficiency"`
}

// DefaultWeights favours proximity over price over sunshine.
func DefaultWeights() Weights {
	return Weights{Distance: 10, Cost: 5, Efficiency: 0.5}
}

// Score computes the composite score for a candidate.
func (w Weights) Score(distanceKM, costPerKWH, efficiency float64) float64 {
	return distanceKM*w.Distance + costPerKWH*w.Cost - efficiency*w.Efficiency
}

// Options configures a Selector. Zero values use the defaults.
type Options struct {
	Weights      *Weights
	SlotDuration time.Duration
	HorizonHours int
	Parallelism  int
	Metrics      *metrics.Recorder
}

// Selector chooses the best charger and solar slot for a user. Selection is
// advisory: the slot is only reserved once a booking is created.
type Selector struct {
	chargers  ChargerDirectory
	bookings  BookingStore
	forecasts ForecastSource

	weights      Weights
	slotDuration time.Duration
	horizonHours int
	parallelism  int
	metrics      *metrics.Recorder
}

// New returns a Selector.
func New(chargers ChargerDirectory, bookings BookingStore, forecasts ForecastSource, opts Options) *Selector {
	s := &Selector{
		chargers:     chargers,
		bookings:     bookings,
		forecasts:    forecasts,
		weights:      DefaultWeights(),
		slotDuration: opts.SlotDuration,
		horizonHours: opts.HorizonHours,
		parallelism:  opts.Parallelism,
		metrics:      opts.Metrics,
	}
	if opts.Weights != nil {
		s.weights = *opts.Weights
	}
	if s.slotDuration <= 0 {
		s.slotDuration = DefaultSlotDuration
	}
	if s.horizonHours <= 0 {
		s.horizonHours = DefaultHorizonHours
	}
	if s.parallelism <= 0 {
		s.parallelism = DefaultParallelism
	}
	return s
}

// Select evaluates every charger that isn't under maintenance and returns the
// one with the lowest composite score. It returns ErrNoOption when none has a
// free slot.
func (s *Selector) Select(ctx context.Context, req types.SmartScheduleRequest) (types.SmartSchedule, error) {
	res, err := s.selectBest(ctx, req)
	switch {
	case err == nil:
		s.metrics.SmartSchedule("ok")
	case errors.Is(err, ErrNoOption):
		s.metrics.SmartSchedule("no_option")
	default:
		s.metrics.SmartSchedule("error")
	}
	return res, err
}

func (s *Selector) selectBest(ctx context.Context, req types.SmartScheduleRequest) (types.SmartSchedule, error) {
	chargers, err := s.chargers.ListChargers(ctx, types.ChargerStatusMaintenance)
	if err != nil {
		return types.SmartSchedule{}, fmt.Errorf("failed to list chargers: %w", err)
	}
	if len(chargers) == 0 {
		return types.SmartSchedule{}, ErrNoOption
	}

	energy := req.EnergyNeededKWH
	if energy <= 0 {
		energy = DefaultEnergyKWH
	}
	user := types.Location{Lat: req.Lat, Lng: req.Lng}

	// most efficient hours first, ties in chronological order
	forecast := s.forecasts.Forecast(ctx, req.Lat, req.Lng, s.horizonHours)
	ranked := make([]types.ForecastPoint, len(forecast))
	copy(ranked, forecast)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Efficiency > ranked[j].Efficiency
	})

	candidates := make([]*types.CompositeCandidate, len(chargers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, c := range chargers {
		g.Go(func() error {
			slot, ok, err := s.bestSlot(gctx, c, ranked)
			if err != nil || !ok {
				return err
			}
			distance := Distance(user, chargerLocation(c))
			candidates[i] = &types.CompositeCandidate{
				Charger:    c,
				BestSlot:   slot,
				DistanceKM: distance,
				Score:      s.weights.Score(distance, c.CostPerKWH, slot.Efficiency),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.SmartSchedule{}, err
	}

	var best *types.CompositeCandidate
	for _, cand := range candidates {
		// strict comparison keeps the earlier charger on ties
		if cand != nil && (best == nil || cand.Score < best.Score) {
			best = cand
		}
	}
	if best == nil {
		log.Ctx(ctx).InfoContext(ctx, "no charger has a free slot", slog.Int("chargers", len(chargers)))
		return types.SmartSchedule{}, ErrNoOption
	}

	nearest := chargers[0]
	nearestKM := math.Inf(1)
	for _, c := range chargers {
		if d := Distance(user, chargerLocation(c)); d < nearestKM {
			nearest, nearestKM = c, d
		}
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"selected charger",
		slog.String("chargerID", best.Charger.ID),
		slog.Float64("score", best.Score),
		slog.Float64("distanceKM", best.DistanceKM),
		slog.Time("start", best.BestSlot.Start),
	)
	return types.SmartSchedule{
		CompositeCandidate: *best,
		NearestChargerID:   nearest.ID,
		EstimatedCost:      best.Charger.CostPerKWH * energy,
		Considered:         len(chargers),
	}, nil
}

// chargerLocation places chargers stored without coordinates at
// types.DefaultLocation.
func chargerLocation(c types.Charger) types.Location {
	if c.Location.IsZero() {
		return types.DefaultLocation
	}
	return c.Location
}

// bestSlot scans ranked forecast hours and returns the first window with no
// blocking booking on the charger. Lookup errors skip that window.
func (s *Selector) bestSlot(ctx context.Context, c types.Charger, ranked []types.ForecastPoint) (types.SmartSlot, bool, error) {
	for _, p := range ranked {
		if err := ctx.Err(); err != nil {
			return types.SmartSlot{}, false, err
		}
		start := p.Time
		end := start.Add(s.slotDuration)
		overlaps, err := s.bookings.FindOverlaps(ctx, c.ID, start, end)
		if err != nil {
			log.Ctx(ctx).WarnContext(
				ctx,
				"failed to check charger bookings, skipping slot",
				slog.String("chargerID", c.ID),
				slog.Time("start", start),
				slog.Any("error", err),
			)
			continue
		}
		if len(overlaps) > 0 {
			continue
		}
		return types.SmartSlot{
			Start:      start,
			End:        end,
			Efficiency: p.Efficiency,
			Weather:    p.Weather,
		}, true, nil
	}
	return types.SmartSlot{}, false, nil
}
