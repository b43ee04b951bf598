package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-day layout the MOEX ISS from/till parameters use.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, the plain date layout, and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// PeriodRange returns the [from, till] range covering the trailing number
// of years, ending now.
func PeriodRange(now time.Time, years int) (time.Time, time.Time) {
	return now.AddDate(0, 0, -years*365), now
}

// DayStamp formats t for coarse cache keys (one key per calendar day).
func DayStamp(t time.Time) string { return t.Format("20060102") }

// SessionStamp formats t for intraday cache keys (one key per fetch moment).
func SessionStamp(t time.Time) string { return t.Format("20060102_150405") }
