package usecase

import (
	"errors"
	"testing"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
)

func hourlySeries(start time.Time, closes []float64) models.Series {
	s := make(models.Series, 0, len(closes))
	for i, c := range closes {
		s = append(s, models.Candle{
			Begin:  start.Add(time.Duration(i) * time.Hour),
			Open:   c - 1,
			High:   c + 2,
			Low:    c - 2,
			Close:  c,
			Volume: 10,
		})
	}
	return s
}

func TestAggregateHourlyToFourHour(t *testing.T) {
	start := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	s := hourlySeries(start, []float64{10, 12, 11, 13, 20, 22})

	got, err := Aggregate(s, time.Hour, 4*time.Hour)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d buckets, want 2", len(got))
	}

	b := got[0]
	if !b.Begin.Equal(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("bucket begin = %v", b.Begin)
	}
	if b.Open != 9 || b.Close != 13 {
		t.Fatalf("open/close = %v/%v, want 9/13", b.Open, b.Close)
	}
	if b.High != 15 || b.Low != 8 {
		t.Fatalf("high/low = %v/%v, want 15/8", b.High, b.Low)
	}
	if b.Volume != 40 {
		t.Fatalf("volume = %v, want 40", b.Volume)
	}
}

func TestAggregateIsAssociative(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	closes := make([]float64, 24)
	for i := range closes {
		closes[i] = float64(100 + i*3%7)
	}
	s := hourlySeries(start, closes)

	direct, err := Aggregate(s, time.Hour, 8*time.Hour)
	if err != nil {
		t.Fatalf("direct: %v", err)
	}
	four, err := Aggregate(s, time.Hour, 4*time.Hour)
	if err != nil {
		t.Fatalf("to 4h: %v", err)
	}
	stepped, err := Aggregate(four, 4*time.Hour, 8*time.Hour)
	if err != nil {
		t.Fatalf("4h to 8h: %v", err)
	}

	if len(direct) != len(stepped) {
		t.Fatalf("lengths differ: %d vs %d", len(direct), len(stepped))
	}
	for i := range direct {
		if direct[i] != stepped[i] {
			t.Fatalf("bucket %d differs: %+v vs %+v", i, direct[i], stepped[i])
		}
	}
}

func TestAggregateRejectsNonMultiple(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	s := hourlySeries(start, []float64{10, 11})

	cases := []struct{ src, dst time.Duration }{
		{time.Hour, 90 * time.Minute},
		{time.Hour, time.Hour},
		{4 * time.Hour, time.Hour},
	}
	for _, c := range cases {
		if _, err := Aggregate(s, c.src, c.dst); !errors.Is(err, models.ErrUnsupportedAggregation) {
			t.Fatalf("Aggregate(%s, %s): err = %v, want ErrUnsupportedAggregation", c.src, c.dst, err)
		}
	}
}

func TestAggregateEmptySeries(t *testing.T) {
	got, err := Aggregate(models.Series{}, time.Hour, 4*time.Hour)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d candles, want 0", len(got))
	}
}

func TestAggregateTimeframePassesThroughNative(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	s := hourlySeries(start, []float64{10, 11})

	got, err := AggregateTimeframe(s, drepo.TF1h)
	if err != nil {
		t.Fatalf("AggregateTimeframe: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("native timeframe must pass through unchanged, got %d", len(got))
	}
}
