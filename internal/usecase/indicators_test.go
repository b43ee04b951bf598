package usecase

import (
	"math"
	"testing"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
)

func closesSeries(closes ...float64) models.Series {
	s := make(models.Series, len(closes))
	for i, c := range closes {
		s[i] = models.Candle{
			Begin:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		}
	}
	return s
}

func column(t *testing.T, set *models.IndicatorSet, name string) []float64 {
	t.Helper()
	v, ok := set.Get(name)
	if !ok {
		t.Fatalf("column %q missing", name)
	}
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMAWarmsUpProgressively(t *testing.T) {
	out := rollingMean([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if !almostEqual(out[i], want[i]) {
			t.Fatalf("sma[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestEMASeedsAtFirstObservation(t *testing.T) {
	// alpha = 2/3 for period 2
	out := ema([]float64{10, 20, 30}, 2)
	want := []float64{10, 10 + 2.0/3*10, 0}
	want[2] = want[1] + 2.0/3*(30-want[1])
	for i := range want {
		if !almostEqual(out[i], want[i]) {
			t.Fatalf("ema[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestRSISaturatesOnMonotonicGains(t *testing.T) {
	out := rsi([]float64{10, 11, 12, 13, 14, 15}, 3)
	if !math.IsNaN(out[0]) {
		t.Fatalf("rsi[0] = %v, want NaN before first delta", out[0])
	}
	for i := 1; i < len(out); i++ {
		if out[i] != 100 {
			t.Fatalf("rsi[%d] = %v, want 100 on all-gain series", i, out[i])
		}
	}
}

func TestRollingStdUndefinedForSingleSample(t *testing.T) {
	out := rollingStd([]float64{10, 12, 14}, 3)
	if !math.IsNaN(out[0]) {
		t.Fatalf("std[0] = %v, want NaN", out[0])
	}
	if !almostEqual(out[1], math.Sqrt2) {
		t.Fatalf("std[1] = %v, want sqrt(2)", out[1])
	}
}

func TestStochNaNOnFlatRange(t *testing.T) {
	highs := []float64{10, 10, 10}
	lows := []float64{10, 10, 10}
	closes := []float64{10, 10, 10}
	out := stochK(highs, lows, closes, 3)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Fatalf("stoch[%d] = %v, want NaN on zero range", i, v)
		}
	}
}

func TestOBVSignsVolumeByDirection(t *testing.T) {
	out := obv([]float64{10, 11, 11, 9}, []float64{5, 6, 7, 8})
	want := []float64{0, 6, 6, -2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("obv[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestVWAPIsCumulative(t *testing.T) {
	out := vwap([]float64{10, 20}, []float64{1, 3})
	if !almostEqual(out[0], 10) {
		t.Fatalf("vwap[0] = %v, want 10", out[0])
	}
	if !almostEqual(out[1], 70.0/4) {
		t.Fatalf("vwap[1] = %v, want 17.5", out[1])
	}
}

func TestVWAPNaNUntilVolumeArrives(t *testing.T) {
	out := vwap([]float64{10, 20}, []float64{0, 4})
	if !math.IsNaN(out[0]) {
		t.Fatalf("vwap[0] = %v, want NaN with zero cumulative volume", out[0])
	}
	if !almostEqual(out[1], 20) {
		t.Fatalf("vwap[1] = %v, want 20", out[1])
	}
}

func TestComputeIndicatorsColumnsAndAlignment(t *testing.T) {
	s := closesSeries(10, 11, 12, 13, 14, 15, 14, 13, 12, 11)
	p := drepo.ProfileFor(drepo.TFDaily)

	set := ComputeIndicators(s, p)
	wantCols := []string{
		"SMA_10", "SMA_20", "SMA_50",
		"EMA_10", "EMA_20", "EMA_50",
		"RSI_14",
		"BB_middle", "BB_upper", "BB_lower",
		"MACD", "MACD_signal", "MACD_histogram",
		"Stoch_K", "Stoch_D", "Stoch_Slow",
		"OBV", "VWAP", "ADX",
	}
	for _, name := range wantCols {
		col := column(t, set, name)
		if len(col) != len(s) {
			t.Fatalf("column %s has %d values, want %d", name, len(col), len(s))
		}
	}
}

func TestComputeIndicatorsDeterministic(t *testing.T) {
	s := closesSeries(10, 12, 11, 14, 13, 16, 15, 18)
	p := drepo.ProfileFor(drepo.TFWeekly)

	a := ComputeIndicators(s, p)
	b := ComputeIndicators(s, p)
	for _, name := range a.Columns {
		av, _ := a.Get(name)
		bv, _ := b.Get(name)
		for i := range av {
			if av[i] != bv[i] && !(math.IsNaN(av[i]) && math.IsNaN(bv[i])) {
				t.Fatalf("column %s diverges at %d: %v vs %v", name, i, av[i], bv[i])
			}
		}
	}
}

func TestComputeIndicatorsEmptySeries(t *testing.T) {
	set := ComputeIndicators(models.Series{}, drepo.ProfileFor(drepo.TFDaily))
	for _, name := range set.Columns {
		v, _ := set.Get(name)
		if len(v) != 0 {
			t.Fatalf("column %s not empty for empty input", name)
		}
	}
}
