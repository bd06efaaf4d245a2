package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/solarslot/solarslot/pkg/log"
)

// MetNo fetches forecasts from the Norwegian Meteorological Institute's
// locationforecast compact API. It only provides cloud cover and temperature.
type MetNo struct {
	apiURL string
	client *http.Client
	cache  observationCache
}

// NewMetNo returns a MetNo client. The client must send an identifying
// User-Agent, see common.HTTPClient.
func NewMetNo(apiURL string, client *http.Client) *MetNo {
	return &MetNo{apiURL: apiURL, client: client}
}

// Name implements WeatherProvider.
func (m *MetNo) Name() string {
	return "metno"
}

// Validate ensures the configuration is valid.
func (m *MetNo) Validate() error {
	if m.apiURL == "" {
		return fmt.Errorf("metno-api-url is required")
	}
	if _, err := url.Parse(m.apiURL); err != nil {
		return fmt.Errorf("failed to parse metno url (%s): %w", m.apiURL, err)
	}
	return nil
}

type metnoResponse struct {
	Properties struct {
		Timeseries []metnoEntry `json:"timeseries"`
	} `json:"properties"`
}

type metnoEntry struct {
	Time time.Time `json:"time"`
	Data struct {
		Instant struct {
			Details struct {
				CloudAreaFraction *float64 `json:"cloud_area_fraction"`
				AirTemperature    *float64 `json:"air_temperature"`
			} `json:"details"`
		} `json:"instant"`
	} `json:"data"`
}

// Hourly implements WeatherProvider.
func (m *MetNo) Hourly(ctx context.Context, lat, lng float64, hours int) ([]Observation, error) {
	key := cacheKey(lat, lng)
	now := time.Now()
	obs, ok := m.cache.get(key, now)
	if !ok {
		var err error
		obs, err = m.fetch(ctx, lat, lng)
		if err != nil {
			return nil, err
		}
		m.cache.set(key, now, obs)
	}
	return window(obs, now, hours), nil
}

func (m *MetNo) fetch(ctx context.Context, lat, lng float64) ([]Observation, error) {
	u, err := url.Parse(m.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	params := url.Values{}
	// met.no asks for at most 4 decimals
	params.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', 4, 64))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching forecast from metno", slog.String("url", u.String()))

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metno api returned status: %d", resp.StatusCode)
	}

	var data metnoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	obs := make([]Observation, 0, len(data.Properties.Timeseries))
	for _, e := range data.Properties.Timeseries {
		o := Observation{
			Time:         e.Time,
			CloudCover:   defaultCloudCover,
			TemperatureC: defaultTemperatureC,
		}
		if d := e.Data.Instant.Details; d.CloudAreaFraction != nil {
			o.CloudCover = *d.CloudAreaFraction
		}
		if d := e.Data.Instant.Details; d.AirTemperature != nil {
			o.TemperatureC = *d.AirTemperature
		}
		obs = append(obs, o)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetched metno forecast", slog.Int("count", len(obs)))
	return obs, nil
}
