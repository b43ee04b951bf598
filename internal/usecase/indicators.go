package usecase

import (
	"fmt"
	"math"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
)

// ComputeIndicators evaluates the full indicator family for a repaired
// series under the given parameter profile. Output columns are keyed by
// name and aligned index-for-index with the input candles; positions where
// an indicator is not yet defined hold NaN. The computation is pure: the
// same series and profile always produce the same set.
func ComputeIndicators(s models.Series, p drepo.Profile) *models.IndicatorSet {
	set := models.NewIndicatorSet()
	n := len(s)

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range s {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	for _, period := range p.SMAPeriods {
		set.Add(fmt.Sprintf("SMA_%d", period), rollingMean(closes, period))
	}
	for _, period := range p.EMAPeriods {
		set.Add(fmt.Sprintf("EMA_%d", period), ema(closes, period))
	}

	set.Add(fmt.Sprintf("RSI_%d", p.RSIPeriod), rsi(closes, p.RSIPeriod))

	middle := rollingMean(closes, p.BBPeriod)
	std := rollingStd(closes, p.BBPeriod)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		upper[i] = middle[i] + p.BBStdDev*std[i]
		lower[i] = middle[i] - p.BBStdDev*std[i]
	}
	set.Add("BB_middle", middle)
	set.Add("BB_upper", upper)
	set.Add("BB_lower", lower)

	fast := ema(closes, p.MACDFast)
	slow := ema(closes, p.MACDSlow)
	macd := make([]float64, n)
	for i := 0; i < n; i++ {
		macd[i] = fast[i] - slow[i]
	}
	signal := ema(macd, p.MACDSignal)
	hist := make([]float64, n)
	for i := 0; i < n; i++ {
		hist[i] = macd[i] - signal[i]
	}
	set.Add("MACD", macd)
	set.Add("MACD_signal", signal)
	set.Add("MACD_histogram", hist)

	k := stochK(highs, lows, closes, p.StochK)
	d := rollingMean(k, p.StochD)
	set.Add("Stoch_K", k)
	set.Add("Stoch_D", d)
	set.Add("Stoch_Slow", rollingMean(d, p.StochSmooth))

	set.Add("OBV", obv(closes, volumes))
	set.Add("VWAP", vwap(closes, volumes))
	set.Add("ADX", adx(highs, lows, closes, p.ADXPeriod))

	return set
}

// rollingMean is a trailing mean that starts producing values immediately:
// positions before a full window average whatever is available. NaN inputs
// are excluded from the window; an all-NaN window yields NaN.
func rollingMean(v []float64, window int) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		var cnt int
		for j := start; j <= i; j++ {
			if math.IsNaN(v[j]) {
				continue
			}
			sum += v[j]
			cnt++
		}
		if cnt == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(cnt)
		}
	}
	return out
}

// rollingStd is the trailing sample standard deviation. A window with fewer
// than two observations has no sample deviation and yields NaN.
func rollingStd(v []float64, window int) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		var cnt int
		for j := start; j <= i; j++ {
			if math.IsNaN(v[j]) {
				continue
			}
			sum += v[j]
			cnt++
		}
		if cnt < 2 {
			out[i] = math.NaN()
			continue
		}
		mean := sum / float64(cnt)
		var ss float64
		for j := start; j <= i; j++ {
			if math.IsNaN(v[j]) {
				continue
			}
			d := v[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(cnt-1))
	}
	return out
}

// ema seeds at the first defined observation and then applies the standard
// recurrence with alpha = 2/(period+1).
func ema(v []float64, period int) []float64 {
	out := make([]float64, len(v))
	alpha := 2.0 / (float64(period) + 1)
	prev := math.NaN()
	for i, x := range v {
		if math.IsNaN(x) {
			out[i] = prev
			continue
		}
		if math.IsNaN(prev) {
			prev = x
		} else {
			prev += alpha * (x - prev)
		}
		out[i] = prev
	}
	return out
}

// rsi uses plain rolling means of gains and losses. Zero average loss means
// the relative strength is unbounded and the index saturates at 100.
func rsi(closes []float64, period int) []float64 {
	n := len(closes)
	if n == 0 {
		return nil
	}
	gains := make([]float64, n)
	losses := make([]float64, n)
	gains[0], losses[0] = math.NaN(), math.NaN()
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if math.IsNaN(d) {
			gains[i], losses[i] = math.NaN(), math.NaN()
			continue
		}
		if d > 0 {
			gains[i], losses[i] = d, 0
		} else {
			gains[i], losses[i] = 0, -d
		}
	}

	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]):
			out[i] = math.NaN()
		case avgLoss[i] == 0:
			out[i] = 100
		default:
			rs := avgGain[i] / avgLoss[i]
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// stochK positions the close inside the trailing high/low range. A flat
// range has no defined position, so the value is NaN there.
func stochK(highs, lows, closes []float64, period int) []float64 {
	hiN := rollingMax(highs, period)
	loN := rollingMin(lows, period)
	out := make([]float64, len(closes))
	for i := range closes {
		span := hiN[i] - loN[i]
		if math.IsNaN(span) || span == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = 100 * (closes[i] - loN[i]) / span
	}
	return out
}

func rollingMax(v []float64, window int) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		m := math.NaN()
		for j := start; j <= i; j++ {
			m = nanMax(m, v[j])
		}
		out[i] = m
	}
	return out
}

func rollingMin(v []float64, window int) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		m := math.NaN()
		for j := start; j <= i; j++ {
			m = nanMin(m, v[j])
		}
		out[i] = m
	}
	return out
}

// obv accumulates volume signed by the close-to-close direction, starting
// from zero.
func obv(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	var acc float64
	for i := range closes {
		if i > 0 {
			switch {
			case closes[i] > closes[i-1]:
				acc += volumes[i]
			case closes[i] < closes[i-1]:
				acc -= volumes[i]
			}
		}
		out[i] = acc
	}
	return out
}

// vwap is cumulative from the start of the series, not session-anchored.
// Until the first nonzero volume arrives there is no traded price to
// average, so the value is NaN.
func vwap(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	var cumPV, cumV float64
	for i := range closes {
		cumPV += closes[i] * volumes[i]
		cumV += volumes[i]
		if cumV == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = cumPV / cumV
		}
	}
	return out
}

// adx smooths directional movement and true range with plain rolling means
// rather than Wilder's recursion. Degenerate denominators yield NaN instead
// of being clamped.
func adx(highs, lows, closes []float64, period int) []float64 {
	n := len(highs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr[0], plusDM[0], minusDM[0] = math.NaN(), math.NaN(), math.NaN()
	for i := 1; i < n; i++ {
		tr[i] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))

		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		} else {
			plusDM[i] = 0
		}
		if down > up && down > 0 {
			minusDM[i] = down
		} else {
			minusDM[i] = 0
		}
	}

	atr := rollingMean(tr, period)
	plusN := rollingMean(plusDM, period)
	minusN := rollingMean(minusDM, period)

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) || atr[i] == 0 {
			dx[i] = math.NaN()
			continue
		}
		plusDI := 100 * plusN[i] / atr[i]
		minusDI := 100 * minusN[i] / atr[i]
		sum := plusDI + minusDI
		if math.IsNaN(sum) || sum == 0 {
			dx[i] = math.NaN()
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}
	return rollingMean(dx, period)
}
