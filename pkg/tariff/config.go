package tariff

import (
	"context"
	"log/slog"
	"maps"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/types"
)

// Configured registers the tariff flags and returns a Table populated once
// flags are parsed.
func Configured() *Table {
	overrides := map[string]types.Currency{}
	lflag.JSON(&overrides, "currency-overrides", overrides, `JSON map of country to {"code","symbol","rate"} merged over the built-in currencies`)

	t := &Table{}
	lflag.Do(func() {
		currencies := maps.Clone(defaultCurrencies)
		for name, c := range overrides {
			if c.Rate <= 0 {
				log.Ctx(context.Background()).Error("currency override must have a positive rate", slog.String("country", name))
				os.Exit(1)
			}
			currencies[name] = c
		}
		built, err := NewTable(nil, currencies)
		if err != nil {
			log.Ctx(context.Background()).Error("failed to build tariff table", slog.Any("error", err))
			os.Exit(1)
		}
		*t = *built
	})
	return t
}
