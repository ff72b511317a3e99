package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date form accepted by ParseAsOf
const DateLayout = "2006-01-02"

// Now returns the current time in UTC.
// Ledger timestamps are stored in UTC, so comparisons against them use this.
func Now() time.Time {
	return time.Now().UTC()
}

// ParseAsOf reads a reference time given either as RFC 3339 or as a bare
// date. A bare date means the end of that day in UTC.
func ParseAsOf(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected %s or RFC 3339, got %q", DateLayout, value)
	}
	return EndOfDay(t), nil
}

// EndOfDay returns the last instant of t's UTC day
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, time.UTC)
}
