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

// OpenMeteo fetches forecasts from api.open-meteo.com, which also provides
// shortwave radiation and UV index.
type OpenMeteo struct {
	apiURL string
	client *http.Client
	cache  observationCache
}

// NewOpenMeteo returns an OpenMeteo client.
func NewOpenMeteo(apiURL string, client *http.Client) *OpenMeteo {
	return &OpenMeteo{apiURL: apiURL, client: client}
}

// Name implements WeatherProvider.
func (o *OpenMeteo) Name() string {
	return "openmeteo"
}

// Validate ensures the configuration is valid.
func (o *OpenMeteo) Validate() error {
	if o.apiURL == "" {
		return fmt.Errorf("openmeteo-api-url is required")
	}
	if _, err := url.Parse(o.apiURL); err != nil {
		return fmt.Errorf("failed to parse openmeteo url (%s): %w", o.apiURL, err)
	}
	return nil
}

type openMeteoResponse struct {
	Hourly struct {
		Time               []int64    `json:"time"`
		CloudCover         []*float64 `json:"cloud_cover"`
		UVIndex            []*float64 `json:"uv_index"`
		Temperature        []*float64 `json:"temperature_2m"`
		ShortwaveRadiation []*float64 `json:"shortwave_radiation"`
	} `json:"hourly"`
}

// Hourly implements WeatherProvider.
func (o *OpenMeteo) Hourly(ctx context.Context, lat, lng float64, hours int) ([]Observation, error) {
	key := cacheKey(lat, lng)
	now := time.Now()
	obs, ok := o.cache.get(key, now)
	if !ok {
		var err error
		obs, err = o.fetch(ctx, lat, lng)
		if err != nil {
			return nil, err
		}
		o.cache.set(key, now, obs)
	}
	return window(obs, now, hours), nil
}

func (o *OpenMeteo) fetch(ctx context.Context, lat, lng float64) ([]Observation, error) {
	u, err := url.Parse(o.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lng, 'f', 4, 64))
	params.Set("hourly", "cloud_cover,uv_index,temperature_2m,shortwave_radiation")
	params.Set("timezone", "UTC")
	params.Set("timeformat", "unixtime")
	params.Set("forecast_days", "2")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching forecast from openmeteo", slog.String("url", u.String()))

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openmeteo api returned status: %d", resp.StatusCode)
	}

	var data openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	h := data.Hourly
	at := func(vals []*float64, i int) *float64 {
		if i < len(vals) {
			return vals[i]
		}
		return nil
	}
	obs := make([]Observation, 0, len(h.Time))
	for i, ts := range h.Time {
		ob := Observation{
			Time:         time.Unix(ts, 0).UTC(),
			CloudCover:   defaultCloudCover,
			TemperatureC: defaultTemperatureC,
			Radiation:    at(h.ShortwaveRadiation, i),
			UVIndex:      at(h.UVIndex, i),
		}
		if v := at(h.CloudCover, i); v != nil {
			ob.CloudCover = *v
		}
		if v := at(h.Temperature, i); v != nil {
			ob.TemperatureC = *v
		}
		obs = append(obs, ob)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetched openmeteo forecast", slog.Int("count", len(obs)))
	return obs, nil
}
