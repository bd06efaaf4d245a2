package forecast

import (
	"context"
	"time"
)

// ClearSky is an offline provider that reports a cloudless sky at a fixed
// temperature. Useful for local development and tests.
type ClearSky struct {
	now func() time.Time
}

// Name implements WeatherProvider.
func (ClearSky) Name() string {
	return "clearsky"
}

// Hourly implements WeatherProvider.
func (c ClearSky) Hourly(ctx context.Context, lat, lng float64, hours int) ([]Observation, error) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	start := now().Truncate(time.Hour)
	obs := make([]Observation, max(hours, 0))
	for i := range obs {
		obs[i] = Observation{
			Time:         start.Add(time.Duration(i) * time.Hour),
			CloudCover:   0,
			TemperatureC: defaultTemperatureC,
		}
	}
	return obs, nil
}
