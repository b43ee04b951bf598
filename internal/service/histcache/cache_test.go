package histcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
	"MoexPull/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordPageFetched(string, int)   {}
func (nopMetrics) RecordCacheHit(string)           {}
func (nopMetrics) RecordCacheMiss(string)          {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordLastClose(string, float64) {}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return New(t.TempDir(), nopMetrics{}, logger.Nop())
}

func sampleSeries(n int) models.Series {
	s := make(models.Series, n)
	for i := range s {
		s[i] = models.Candle{
			Begin: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:  100.5, High: 101.25, Low: 99.75, Close: 100.125, Volume: float64(1000 + i),
		}
	}
	return s
}

func fetchConst(s models.Series) func(context.Context) (models.Series, error) {
	return func(context.Context) (models.Series, error) { return s, nil }
}

func fetchFail() func(context.Context) (models.Series, error) {
	return func(context.Context) (models.Series, error) { return nil, errors.New("feed down") }
}

func TestGetOrFetchRoundTrip(t *testing.T) {
	c := newTestCache(t)
	want := sampleSeries(5)

	got, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchConst(want))
	if err != nil {
		t.Fatalf("first GetOrFetch: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d candles, want 5", len(got))
	}

	calls := 0
	got, err = c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, func(context.Context) (models.Series, error) {
		calls++
		return nil, errors.New("must not be called")
	})
	if err != nil {
		t.Fatalf("second GetOrFetch: %v", err)
	}
	if calls != 0 {
		t.Fatal("fetch invoked despite fresh cache entry")
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candle %d changed across round trip: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestGetOrFetchStaleEntryRefetches(t *testing.T) {
	c := newTestCache(t)
	old := sampleSeries(3)
	if _, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchConst(old)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Age the entry past the daily TTL.
	aged := time.Now().Add(-25 * time.Hour)
	for _, p := range cacheFiles(t, c.dir) {
		if err := os.Chtimes(p, aged, aged); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	fresh := sampleSeries(7)
	got, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchConst(fresh))
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("got %d candles, want refetched 7", len(got))
	}
}

func TestGetOrFetchFailedFetchKeepsStaleEntry(t *testing.T) {
	c := newTestCache(t)
	if _, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchConst(sampleSeries(3))); err != nil {
		t.Fatalf("seed: %v", err)
	}
	aged := time.Now().Add(-25 * time.Hour)
	for _, p := range cacheFiles(t, c.dir) {
		if err := os.Chtimes(p, aged, aged); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if _, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchFail()); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	if len(cacheFiles(t, c.dir)) != 1 {
		t.Fatal("stale entry must survive a failed refresh")
	}
}

func TestGetOrFetchRejectsEmptySeries(t *testing.T) {
	c := newTestCache(t)

	_, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchConst(models.Series{}))
	if !errors.Is(err, models.ErrEmptySeries) {
		t.Fatalf("err = %v, want ErrEmptySeries", err)
	}
	if len(cacheFiles(t, c.dir)) != 0 {
		t.Fatal("empty series must not be persisted")
	}
}

func TestGetOrFetchEvictsSchemaMismatch(t *testing.T) {
	c := newTestCache(t)
	bad := filepath.Join(c.dir, "SBER_DAILY_1Y_20240101.csv")
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("time,price\n2024-01-01,100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := sampleSeries(4)
	got, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchConst(fresh))
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d candles, want refetched 4", len(got))
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Fatal("mismatched entry should have been deleted")
	}
}

func TestNewEntrySupersedesOldStamps(t *testing.T) {
	c := newTestCache(t)
	if _, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchConst(sampleSeries(3))); err != nil {
		t.Fatalf("seed: %v", err)
	}
	aged := time.Now().Add(-25 * time.Hour)
	for _, p := range cacheFiles(t, c.dir) {
		if err := os.Chtimes(p, aged, aged); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	// Force a distinct filename for the refreshed entry.
	c.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }

	if _, err := c.GetOrFetch(context.Background(), "SBER", drepo.TFDaily, 1, fetchConst(sampleSeries(5))); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if n := len(cacheFiles(t, c.dir)); n != 1 {
		t.Fatalf("%d files for one key, want the newest only", n)
	}
}

func TestInvalidateRemovesOnlyMatchingKey(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if _, err := c.GetOrFetch(ctx, "SBER", drepo.TFDaily, 1, fetchConst(sampleSeries(3))); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrFetch(ctx, "GAZP", drepo.TFDaily, 1, fetchConst(sampleSeries(3))); err != nil {
		t.Fatal(err)
	}

	if err := c.Invalidate("SBER", drepo.TFDaily, 1); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	files := cacheFiles(t, c.dir)
	if len(files) != 1 || !strings.Contains(files[0], "GAZP") {
		t.Fatalf("files after invalidate = %v, want only GAZP", files)
	}
}

func cacheFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var out []string
	for _, e := range entries {
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out
}
