package forecast

import (
	"context"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/solarslot/solarslot/pkg/common"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
)

// Configured registers the weather flags and returns a Forecaster that is
// usable once flags are parsed.
func Configured(tz *common.Timezone, rec *metrics.Recorder) *Forecaster {
	f := &Forecaster{metrics: rec}

	provider := lflag.String("weather-provider", "metno", "Weather provider for solar forecasts (metno, openmeteo or clearsky)")
	metnoURL := lflag.String("metno-api-url", "https://api.met.no/weatherapi/locationforecast/2.0/compact", "URL for the Met.no locationforecast API")
	openMeteoURL := lflag.String("openmeteo-api-url", "https://api.open-meteo.com/v1/forecast", "URL for the Open-Meteo forecast API")
	timeout := lflag.Duration("weather-timeout", defaultTimeout, "Timeout for weather API requests")

	lflag.Do(func() {
		ctx := context.Background()
		loc, err := tz.Location()
		if err != nil {
			log.Ctx(ctx).Error("invalid timezone", slog.Any("error", err))
			os.Exit(1)
		}

		client := common.HTTPClient(*timeout)
		var p WeatherProvider
		switch *provider {
		case "metno":
			m := NewMetNo(*metnoURL, client)
			err = m.Validate()
			p = m
		case "openmeteo":
			o := NewOpenMeteo(*openMeteoURL, client)
			err = o.Validate()
			p = o
		case "clearsky":
			p = ClearSky{}
		default:
			log.Ctx(ctx).Error("unsupported weather provider", slog.String("provider", *provider))
			os.Exit(1)
		}
		if err != nil {
			log.Ctx(ctx).Error("invalid weather provider config", slog.String("provider", *provider), slog.Any("error", err))
			os.Exit(1)
		}

		est, err := NewRegressionEstimator()
		if err != nil {
			log.Ctx(ctx).Error("failed to fit solar estimator", slog.Any("error", err))
			os.Exit(1)
		}

		*f = *New(p, est, loc, rec)
		log.Ctx(ctx).Debug("forecaster configured", slog.String("provider", p.Name()), slog.String("timezone", loc.String()))
	})
	return f
}
