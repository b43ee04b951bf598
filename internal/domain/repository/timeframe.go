package repository

import "time"

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m        Timeframe = "1m"
	TF10m       Timeframe = "10m"
	TF1h        Timeframe = "1h"
	TF4h        Timeframe = "4h"
	TFDaily     Timeframe = "daily"
	TFWeekly    Timeframe = "weekly"
	TFMonthly   Timeframe = "monthly"
	TFQuarterly Timeframe = "quarterly"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF10m, TF1h, TF4h, TFDaily, TFWeekly, TFMonthly, TFQuarterly:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TFDaily }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// IntervalCode maps a timeframe to the MOEX ISS interval query parameter.
// TF4h has no feed-side code: it is synthesized from hourly bars.
func (tf Timeframe) IntervalCode() (int, bool) {
	switch tf {
	case TF1m:
		return 1, true
	case TF10m:
		return 10, true
	case TF1h:
		return 60, true
	case TFDaily:
		return 24, true
	case TFWeekly:
		return 7, true
	case TFMonthly:
		return 31, true
	case TFQuarterly:
		return 4, true
	default:
		return 0, false
	}
}

// FetchTimeframe returns the timeframe actually requested from the feed.
// Derived timeframes map to their source resolution.
func (tf Timeframe) FetchTimeframe() Timeframe {
	if tf == TF4h {
		return TF1h
	}
	return tf
}

// Width returns the nominal wall-clock width of one bar. Monthly and
// quarterly widths are nominal upper bounds, not calendar-exact.
func (tf Timeframe) Width() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF10m:
		return 10 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TFDaily:
		return 24 * time.Hour
	case TFWeekly:
		return 7 * 24 * time.Hour
	case TFMonthly:
		return 31 * 24 * time.Hour
	case TFQuarterly:
		return 92 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// PageStep is the advance applied to the next page's lower bound after the
// last seen bar. Capped at one day: coarser bars begin on calendar
// boundaries the nominal width can overshoot, and the loader dedupes
// overlap anyway.
func (tf Timeframe) PageStep() time.Duration {
	if w := tf.Width(); w < 24*time.Hour {
		return w
	}
	return 24 * time.Hour
}

// Intraday reports whether the timeframe resets within a trading day.
// Intraday cache keys carry a time-of-day component.
func (tf Timeframe) Intraday() bool {
	switch tf {
	case TF1m, TF10m, TF1h, TF4h:
		return true
	default:
		return false
	}
}

// TTL returns how long a cached series for this timeframe stays fresh.
// Unrecognized timeframes default to one day.
func (tf Timeframe) TTL() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF10m:
		return 10 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TFDaily:
		return 24 * time.Hour
	case TFWeekly:
		return 7 * 24 * time.Hour
	case TFMonthly:
		return 31 * 24 * time.Hour
	case TFQuarterly:
		return 90 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
