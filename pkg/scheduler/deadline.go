package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// timestamp layouts accepted for ready_by, tried in order. Layouts without an
// offset are interpreted in the scheduler's location.
var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ResolveDeadline parses readyBy relative to now. A bare "HH:MM" refers to
// today in now's location, or tomorrow if that time has already passed.
// Timestamps with an offset are converted into now's location.
func ResolveDeadline(readyBy string, now time.Time) (time.Time, error) {
	readyBy = strings.TrimSpace(readyBy)
	if readyBy == "" {
		return time.Time{}, fmt.Errorf("ready_by is empty")
	}

	if !strings.Contains(readyBy, "T") {
		clock, err := time.Parse("15:04", readyBy)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid ready_by time (%s): %w", readyBy, err)
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
		if t.Before(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}

	var firstErr error
	for _, layout := range deadlineLayouts {
		t, err := time.ParseInLocation(layout, readyBy, now.Location())
		if err == nil {
			return t.In(now.Location()), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("invalid ready_by timestamp (%s): %w", readyBy, firstErr)
}
