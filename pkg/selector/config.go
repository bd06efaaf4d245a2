package selector

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
)

// Configured registers the selector flags and returns a Selector populated
// once flags are parsed.
func Configured(chargers ChargerDirectory, bookings BookingStore, forecasts ForecastSource, rec *metrics.Recorder) *Selector {
	weights := DefaultWeights()
	lflag.JSON(&weights.Distance, "selector-distance-weight", weights.Distance, "Score weight per km of distance to the charger")
	lflag.JSON(&weights.Cost, "selector-cost-weight", weights.Cost, "Score weight per unit of charger cost per kWh")
	lflag.JSON(&weights.Efficiency, "selector-efficiency-weight", weights.Efficiency, "Score credit per percent of forecast solar efficiency")

	slotHours := int(DefaultSlotDuration / time.Hour)
	lflag.JSON(&slotHours, "selector-slot-hours", slotHours, "Length in hours of the slot suggested on each charger")
	horizonHours := DefaultHorizonHours
	lflag.JSON(&horizonHours, "selector-horizon-hours", horizonHours, "How many hours ahead to look for a free slot")
	parallelism := DefaultParallelism
	lflag.JSON(&parallelism, "selector-parallelism", parallelism, "How many chargers to evaluate concurrently")

	s := &Selector{}
	lflag.Do(func() {
		if slotHours <= 0 || horizonHours <= 0 || parallelism <= 0 {
			log.Ctx(context.Background()).Error(
				"selector hours and parallelism must be positive",
				slog.Int("slotHours", slotHours),
				slog.Int("horizonHours", horizonHours),
				slog.Int("parallelism", parallelism),
			)
			os.Exit(1)
		}
		*s = *New(chargers, bookings, forecasts, Options{
			Weights:      &weights,
			SlotDuration: time.Duration(slotHours) * time.Hour,
			HorizonHours: horizonHours,
			Parallelism:  parallelism,
			Metrics:      rec,
		})
	})
	return s
}
