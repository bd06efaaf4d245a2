package forecast

import (
	"log/slog"

	"github.com/solarslot/solarslot/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}
