// Package histcache persists candle series as CSV files on local disk.
// Entries expire by file modification time, with the horizon chosen per
// timeframe: intraday series go stale in minutes, quarterly ones in months.
package histcache

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
	xlogger "MoexPull/pkg/logger"
	"MoexPull/pkg/util"
)

var csvHeader = []string{"begin", "open", "high", "low", "close", "volume"}

const beginLayout = time.RFC3339

// Cache implements repository.HistoryStore on a directory of CSV files.
// Files are named {TICKER}_{TF}_{P}Y_{stamp}.csv; the stamp carries the
// fetch session so a human can tell entries apart, while freshness is
// judged from mtime.
type Cache struct {
	dir     string
	metrics drepo.Metrics
	logger  *xlogger.Logger

	now func() time.Time
}

func New(dir string, metrics drepo.Metrics, logger *xlogger.Logger) *Cache {
	return &Cache{dir: dir, metrics: metrics, logger: logger, now: time.Now}
}

// GetOrFetch returns a fresh cached series, or runs fetch and persists its
// result. A failed fetch leaves any previous (stale) entry on disk
// untouched, so a later retry can still fall through to it being refreshed.
func (c *Cache) GetOrFetch(ctx context.Context, ticker string, tf drepo.Timeframe, periodYears int, fetch func(ctx context.Context) (models.Series, error)) (models.Series, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}

	prefix := entryPrefix(ticker, tf, periodYears)
	if path, ok := c.freshEntry(prefix, tf.TTL()); ok {
		series, err := c.readFile(path)
		if err == nil {
			c.metrics.RecordCacheHit(string(tf))
			return series, nil
		}
		// Unreadable or schema-mismatched entries are evicted, not served.
		c.logger.Warn("evicting unreadable cache entry",
			xlogger.String("file", filepath.Base(path)),
			xlogger.Error(err),
		)
		c.metrics.RecordError("cache_schema")
		_ = os.Remove(path)
	}
	c.metrics.RecordCacheMiss(string(tf))

	series, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, models.ErrEmptySeries
	}

	if err := c.write(ticker, tf, periodYears, series); err != nil {
		// Serving the data matters more than persisting it.
		c.logger.Warn("cache write failed", xlogger.Error(err))
		c.metrics.RecordError("cache_write")
	}
	return series, nil
}

// Invalidate removes every stored entry for the key regardless of age.
func (c *Cache) Invalidate(ticker string, tf drepo.Timeframe, periodYears int) error {
	for _, path := range c.entries(entryPrefix(ticker, tf, periodYears)) {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

func entryPrefix(ticker string, tf drepo.Timeframe, periodYears int) string {
	return fmt.Sprintf("%s_%s_%dY_", strings.ToUpper(ticker), strings.ToUpper(string(tf)), periodYears)
}

// entries lists this key's files sorted by the stamp suffix, oldest first.
func (c *Cache) entries(prefix string) []string {
	names, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range names {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".csv") {
			out = append(out, filepath.Join(c.dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

func (c *Cache) freshEntry(prefix string, ttl time.Duration) (string, bool) {
	paths := c.entries(prefix)
	for i := len(paths) - 1; i >= 0; i-- {
		info, err := os.Stat(paths[i])
		if err != nil {
			continue
		}
		if c.now().Sub(info.ModTime()) < ttl {
			return paths[i], true
		}
	}
	return "", false
}

func (c *Cache) write(ticker string, tf drepo.Timeframe, periodYears int, series models.Series) error {
	prefix := entryPrefix(ticker, tf, periodYears)
	old := c.entries(prefix)

	var stamp string
	if tf.Intraday() {
		stamp = util.SessionStamp(c.now())
	} else {
		stamp = util.DayStamp(c.now())
	}
	path := filepath.Join(c.dir, prefix+stamp+".csv")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, cd := range series {
		rec := []string{
			cd.Begin.UTC().Format(beginLayout),
			formatFloat(cd.Open),
			formatFloat(cd.High),
			formatFloat(cd.Low),
			formatFloat(cd.Close),
			formatFloat(cd.Volume),
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	// A new entry supersedes all earlier stamps for the same key.
	for _, p := range old {
		if p != path {
			_ = os.Remove(p)
		}
	}
	return nil
}

func (c *Cache) readFile(path string) (models.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i, want := range csvHeader {
		if header[i] != want {
			return nil, fmt.Errorf("schema mismatch: column %d is %q, want %q", i, header[i], want)
		}
	}

	var series models.Series
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		begin, err := time.Parse(beginLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("begin %q: %w", rec[0], err)
		}
		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", csvHeader[i+1], rec[i+1], err)
			}
			vals[i] = v
		}
		series = append(series, models.Candle{
			Begin: begin,
			Open:  vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return series, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
