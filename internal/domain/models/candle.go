package models

import (
	"math"
	"sort"
	"time"
)

// Candle represents one OHLCV bar. Begin is the bar's opening timestamp,
// matching the MOEX ISS "begin" column. Fields the feed omitted are NaN
// until the repair step fills them in.
type Candle struct {
	Begin  time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered candle sequence for one (ticker, timeframe).
type Series []Candle

// Page is one fetched page of candles plus the set of columns the feed
// actually returned. Close and Begin are always present in a valid page.
type Page struct {
	Candles   Series
	HasOpen   bool
	HasHigh   bool
	HasLow    bool
	HasVolume bool
}

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// SortByTime sorts candles ascending by Begin. Stable so that on equal
// timestamps the later-fetched row survives a keep-last dedupe.
func (s Series) SortByTime() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Begin.Before(s[j].Begin) })
}

// DedupeKeepLast removes duplicate timestamps, keeping the last occurrence.
// Input must already be sorted by Begin.
func (s Series) DedupeKeepLast() Series {
	if len(s) < 2 {
		return s
	}
	out := s[:0]
	for i := 0; i < len(s); i++ {
		if i+1 < len(s) && s[i+1].Begin.Equal(s[i].Begin) {
			continue
		}
		out = append(out, s[i])
	}
	return out
}

// Monotonic reports whether timestamps are strictly increasing.
func (s Series) Monotonic() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].Begin.After(s[i-1].Begin) {
			return false
		}
	}
	return true
}

// IndicatorSet holds derived indicator columns aligned 1:1 with the series
// they were computed from. Undefined warm-up values are NaN. Columns keeps
// the insertion order for deterministic serialization.
type IndicatorSet struct {
	Columns []string
	Values  map[string][]float64
}

// NewIndicatorSet creates an empty indicator set.
func NewIndicatorSet() *IndicatorSet {
	return &IndicatorSet{Values: make(map[string][]float64)}
}

// Add appends a named column. Re-adding a name overwrites in place.
func (is *IndicatorSet) Add(name string, values []float64) {
	if _, ok := is.Values[name]; !ok {
		is.Columns = append(is.Columns, name)
	}
	is.Values[name] = values
}

// Get returns a column by name.
func (is *IndicatorSet) Get(name string) ([]float64, bool) {
	v, ok := is.Values[name]
	return v, ok
}

// IsNaN reports whether v is an undefined indicator value.
func IsNaN(v float64) bool { return math.IsNaN(v) }
