package scheduler

import (
	"context"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/solarslot/solarslot/pkg/common"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
	"github.com/solarslot/solarslot/pkg/tariff"
)

// Configured registers the scheduler flags and returns a Scheduler populated
// once flags are parsed.
func Configured(table *tariff.Table, tz *common.Timezone, rec *metrics.Recorder) *Scheduler {
	s := &Scheduler{}

	chargerKW := DefaultChargerKW
	lflag.JSON(&chargerKW, "charger-kw", chargerKW, "Charging power in kW used to size recommended slots")

	lflag.Do(func() {
		if chargerKW <= 0 {
			log.Ctx(context.Background()).Error("charger-kw must be positive", slog.Float64("chargerKW", chargerKW))
			os.Exit(1)
		}
		loc, err := tz.Location()
		if err != nil {
			log.Ctx(context.Background()).Error("invalid timezone", slog.Any("error", err))
			os.Exit(1)
		}
		*s = *New(table, Options{ChargerKW: chargerKW, Location: loc, Metrics: rec})
	})
	return s
}
