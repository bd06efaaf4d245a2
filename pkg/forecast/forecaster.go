package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
	"github.com/solarslot/solarslot/pkg/types"
)

// peakEfficiency is the output percentage above which an hour is flagged as a
// peak solar hour.
const peakEfficiency = 80.0

// Forecaster produces hourly solar efficiency forecasts for a location.
type Forecaster struct {
	provider  WeatherProvider
	estimator Estimator
	loc       *time.Location
	metrics   *metrics.Recorder
	now       func() time.Time
}

// New returns a Forecaster. A nil provider forecasts from default weather
// only. Hours are evaluated in loc.
func New(provider WeatherProvider, estimator Estimator, loc *time.Location, rec *metrics.Recorder) *Forecaster {
	if loc == nil {
		loc = time.Local
	}
	return &Forecaster{
		provider:  provider,
		estimator: estimator,
		loc:       loc,
		metrics:   rec,
		now:       time.Now,
	}
}

// Forecast returns hoursAhead points starting at the current hour. It never
// fails: weather that cannot be fetched, or that lies past the end of the
// provider's feed, is replaced by defaults and estimator errors produce zero
// efficiency.
func (f *Forecaster) Forecast(ctx context.Context, lat, lng float64, hoursAhead int) []types.ForecastPoint {
	hoursAhead = max(0, hoursAhead)
	points := make([]types.ForecastPoint, 0, hoursAhead)
	if hoursAhead == 0 {
		return points
	}

	now := f.now().In(f.loc)
	start := truncateHour(now)
	observed := f.fetch(ctx, lat, lng, hoursAhead)

	for i := 0; i < hoursAhead; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		hour := t.Hour()

		o, ok := observed[t.Truncate(time.Hour).Unix()]
		if !ok {
			o = Observation{CloudCover: defaultCloudCover, TemperatureC: defaultTemperatureC}
		}
		radiation := clearSkyRadiation(hour, o.CloudCover)
		if o.Radiation != nil {
			radiation = *o.Radiation
		}
		uv := derivedUVIndex(hour, o.CloudCover)
		if o.UVIndex != nil {
			uv = *o.UVIndex
		}

		eff, err := f.estimator.Predict(hour, o.CloudCover, radiation)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to predict solar efficiency", slog.Int("hour", hour), slog.Any("error", err))
			eff = 0
		}
		if Altitude(hour) <= 0 {
			eff = 0
		}
		eff = round1(clamp(eff, 0, 100))

		points = append(points, types.ForecastPoint{
			Time:       t,
			Hour:       hour,
			Index:      i,
			Efficiency: eff,
			GridLoad:   round1(gridLoad(hour, o.TemperatureC)),
			Label:      fmt.Sprintf("%02d:00", hour),
			FullLabel:  dayPrefix(now, t) + " " + fmt.Sprintf("%02d:00", hour),
			IsPeak:     eff > peakEfficiency,
			Weather: types.Weather{
				CloudCover:   round1(o.CloudCover),
				Radiation:    round1(radiation),
				TemperatureC: o.TemperatureC,
				UVIndex:      round1(uv),
			},
		})
	}
	return points
}

// fetch returns provider observations keyed by the unix time of their UTC hour.
func (f *Forecaster) fetch(ctx context.Context, lat, lng float64, hours int) map[int64]Observation {
	observed := make(map[int64]Observation, hours)
	if f.provider == nil {
		return observed
	}

	began := time.Now()
	obs, err := f.provider.Hourly(ctx, lat, lng, hours)
	f.metrics.WeatherFetch(f.provider.Name(), time.Since(began), err)
	if err != nil {
		log.Ctx(ctx).WarnContext(
			ctx,
			"failed to fetch weather, using defaults",
			slog.String("provider", f.provider.Name()),
			slog.Any("error", err),
		)
		return observed
	}
	for _, o := range obs {
		observed[o.Time.Truncate(time.Hour).Unix()] = o
	}
	log.Ctx(ctx).DebugContext(ctx, "fetched weather", slog.String("provider", f.provider.Name()), slog.Int("count", len(obs)))
	return observed
}

func truncateHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func dayPrefix(now, t time.Time) string {
	y1, m1, d1 := now.Date()
	today := time.Date(y1, m1, d1, 0, 0, 0, 0, now.Location())
	switch {
	case t.Before(today.AddDate(0, 0, 1)):
		return "Today"
	case t.Before(today.AddDate(0, 0, 2)):
		return "Tomorrow"
	default:
		return t.Format("Mon")
	}
}
