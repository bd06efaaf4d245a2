package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
)

// Timezone is the configured IANA zone used for hour-of-day calculations.
type Timezone struct {
	name *string

	once sync.Once
	loc  *time.Location
	err  error
}

// ConfiguredTimezone registers the timezone flag. Location may be called from
// any lflag.Do callback since flags are parsed before those run.
func ConfiguredTimezone() *Timezone {
	return &Timezone{
		name: lflag.String("timezone", "Local", "IANA time zone for tariff hours and solar position (e.g. Asia/Kolkata)"),
	}
}

// NewTimezone returns a Timezone for the given zone name without registering
// any flags.
func NewTimezone(name string) *Timezone {
	return &Timezone{name: &name}
}

// Location loads the zone once and returns it.
func (tz *Timezone) Location() (*time.Location, error) {
	tz.once.Do(func() {
		tz.loc, tz.err = time.LoadLocation(*tz.name)
		if tz.err != nil {
			tz.err = fmt.Errorf("failed to load timezone (%s): %w", *tz.name, tz.err)
		}
	})
	return tz.loc, tz.err
}
