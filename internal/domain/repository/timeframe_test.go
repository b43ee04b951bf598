package repository

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	if got := NormalizeTimeframe(""); got != TFDaily {
		t.Fatalf("empty input: got %q, want %q", got, TFDaily)
	}
	if got := NormalizeTimeframe("weekly"); got != TFWeekly {
		t.Fatalf("valid input: got %q, want %q", got, TFWeekly)
	}
	if got := NormalizeTimeframe("15m"); got != TFDaily {
		t.Fatalf("unknown input: got %q, want %q", got, TFDaily)
	}
}

func TestIntervalCode(t *testing.T) {
	cases := []struct {
		tf   Timeframe
		code int
	}{
		{TF1m, 1},
		{TF10m, 10},
		{TF1h, 60},
		{TFDaily, 24},
		{TFWeekly, 7},
		{TFMonthly, 31},
		{TFQuarterly, 4},
	}
	for _, c := range cases {
		code, ok := c.tf.IntervalCode()
		if !ok || code != c.code {
			t.Fatalf("%s: got (%d, %v), want (%d, true)", c.tf, code, ok, c.code)
		}
	}

	if _, ok := TF4h.IntervalCode(); ok {
		t.Fatalf("4h has no feed interval, it is derived from hourly bars")
	}
	if TF4h.FetchTimeframe() != TF1h {
		t.Fatalf("4h should fetch as 1h, got %s", TF4h.FetchTimeframe())
	}
	if TFDaily.FetchTimeframe() != TFDaily {
		t.Fatalf("daily should fetch natively, got %s", TFDaily.FetchTimeframe())
	}
}

func TestPageStepCappedAtOneDay(t *testing.T) {
	if got := TF1h.PageStep(); got != time.Hour {
		t.Fatalf("hourly step: got %v, want %v", got, time.Hour)
	}
	for _, tf := range []Timeframe{TFDaily, TFWeekly, TFMonthly, TFQuarterly} {
		if got := tf.PageStep(); got != 24*time.Hour {
			t.Fatalf("%s step: got %v, want %v", tf, got, 24*time.Hour)
		}
	}
}

func TestTTLDefaultsToOneDay(t *testing.T) {
	if got := Timeframe("15m").TTL(); got != 24*time.Hour {
		t.Fatalf("unknown timeframe TTL: got %v, want %v", got, 24*time.Hour)
	}
	if got := TF10m.TTL(); got != 10*time.Minute {
		t.Fatalf("10m TTL: got %v, want %v", got, 10*time.Minute)
	}
}

func TestProfileForClass(t *testing.T) {
	daily := ProfileFor(TFDaily)
	if daily.RSIPeriod != 14 || daily.MACDSlow != 26 {
		t.Fatalf("daily profile: got RSI %d MACD slow %d", daily.RSIPeriod, daily.MACDSlow)
	}
	weekly := ProfileFor(TFWeekly)
	if weekly.RSIPeriod != 21 || weekly.ADXPeriod != 20 {
		t.Fatalf("weekly profile: got RSI %d ADX %d", weekly.RSIPeriod, weekly.ADXPeriod)
	}
	long := ProfileFor(TFQuarterly)
	if long.RSIPeriod != 50 || long.MACDSlow != 200 {
		t.Fatalf("long-term profile: got RSI %d MACD slow %d", long.RSIPeriod, long.MACDSlow)
	}
	for _, tf := range []Timeframe{TF1m, TFDaily, TFWeekly, TFQuarterly} {
		p := ProfileFor(tf)
		if p.BBPeriod != 20 || p.BBStdDev != 2 {
			t.Fatalf("%s: Bollinger parameters are fixed at 20/2, got %d/%v", tf, p.BBPeriod, p.BBStdDev)
		}
	}
}
