package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Observation is one hour of forecast weather. Radiation and UVIndex are nil
// when the provider doesn't supply them and are then derived from cloud cover.
type Observation struct {
	Time         time.Time
	CloudCover   float64
	TemperatureC float64
	Radiation    *float64
	UVIndex      *float64
}

// WeatherProvider fetches hourly weather for a location starting at the
// current hour.
type WeatherProvider interface {
	Name() string
	Hourly(ctx context.Context, lat, lng float64, hours int) ([]Observation, error)
}

// Defaults used when the provider fails or has no data for an hour.
const (
	defaultCloudCover   = 20.0
	defaultTemperatureC = 25.0
)

const (
	cacheTTL       = 10 * time.Minute
	defaultTimeout = 10 * time.Second
)

// observationCache holds recent provider responses keyed by location rounded
// to roughly 1km. Met.no asks clients not to refetch unchanged forecasts.
type observationCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	fetched time.Time
	obs     []Observation
}

func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lng)
}

func (c *observationCache) get(key string, now time.Time) ([]Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || now.Sub(e.fetched) >= cacheTTL {
		return nil, false
	}
	return e.obs, true
}

func (c *observationCache) set(key string, now time.Time, obs []Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	// drop anything stale so the map doesn't grow with every location ever seen
	for k, e := range c.entries {
		if now.Sub(e.fetched) >= cacheTTL {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{fetched: now, obs: obs}
}

func ptr(v float64) *float64 {
	return &v
}

// window drops observations before the current hour (open-meteo returns whole
// days from midnight) and limits the result to hours entries.
func window(obs []Observation, now time.Time, hours int) []Observation {
	current := now.Truncate(time.Hour)
	for len(obs) > 0 && obs[0].Time.Before(current) {
		obs = obs[1:]
	}
	return obs[:max(0, min(hours, len(obs)))]
}
