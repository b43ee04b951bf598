package usecase

import (
	"math"

	"MoexPull/internal/domain/models"
)

// Lookback window for realized-volatility estimation and the fallback used
// when the window has too few observations to produce one.
const (
	volatilityLookback = 20
	fallbackVolatility = 0.05
)

// Repair makes a raw page fit for indicator computation without ever
// dropping a row:
//
//   - columns the feed omitted entirely are approximated (open from close,
//     volume as zero, high/low as a volatility band around close);
//   - remaining per-cell gaps are forward- then backward-filled;
//   - candles with inverted or too-narrow ranges are widened so that
//     low <= open, close <= high holds on every row.
//
// The input page is not modified; Repair returns a fresh series.
func Repair(p *models.Page) models.Series {
	out := make(models.Series, len(p.Candles))
	copy(out, p.Candles)
	if len(out) == 0 {
		return out
	}

	if !p.HasOpen {
		for i := range out {
			out[i].Open = out[i].Close
		}
	}
	if !p.HasVolume {
		for i := range out {
			out[i].Volume = 0
		}
	}
	if !p.HasHigh || !p.HasLow {
		vol := realizedVolatility(out)
		for i := range out {
			if !p.HasHigh {
				out[i].High = out[i].Close * (1 + vol)
			}
			if !p.HasLow {
				out[i].Low = out[i].Close * (1 - vol)
			}
		}
	}

	fillSeries(out)

	for i := range out {
		c := &out[i]
		hi := nanMax(nanMax(c.High, c.Low), c.Close)
		lo := nanMin(nanMin(c.High, c.Low), c.Close)
		c.High = nanMax(hi, c.Open)
		c.Low = nanMin(lo, c.Open)
	}
	return out
}

// realizedVolatility estimates a relative range width from the standard
// deviation of close-to-close returns over the trailing lookback window,
// scaled to the window horizon.
func realizedVolatility(s models.Series) float64 {
	start := len(s) - volatilityLookback
	if start < 0 {
		start = 0
	}

	var rets []float64
	for i := start + 1; i < len(s); i++ {
		prev, cur := s[i-1].Close, s[i].Close
		if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
			continue
		}
		rets = append(rets, cur/prev-1)
	}
	if len(rets) < 2 {
		return fallbackVolatility
	}

	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	var ss float64
	for _, r := range rets {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(rets)-1))
	vol := std * math.Sqrt(volatilityLookback)
	if math.IsNaN(vol) || vol == 0 {
		return fallbackVolatility
	}
	return vol
}

// fillSeries forward-fills then backward-fills NaN cells in the price
// columns and zeroes NaN volume.
func fillSeries(s models.Series) {
	fields := []func(*models.Candle) *float64{
		func(c *models.Candle) *float64 { return &c.Open },
		func(c *models.Candle) *float64 { return &c.High },
		func(c *models.Candle) *float64 { return &c.Low },
		func(c *models.Candle) *float64 { return &c.Close },
	}
	for _, f := range fields {
		last := math.NaN()
		for i := range s {
			v := f(&s[i])
			if math.IsNaN(*v) {
				*v = last
			} else {
				last = *v
			}
		}
		next := math.NaN()
		for i := len(s) - 1; i >= 0; i-- {
			v := f(&s[i])
			if math.IsNaN(*v) {
				*v = next
			} else {
				next = *v
			}
		}
	}
	for i := range s {
		if math.IsNaN(s[i].Volume) {
			s[i].Volume = 0
		}
	}
}
