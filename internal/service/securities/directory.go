// Package securities maintains the tradable-instrument directory: a local
// CSV of tickers and company names, loaded lazily and queried for search
// and resolution. Search results go through the shared cache layer so
// repeated lookups skip the scan.
package securities

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	pkgcache "MoexPull/pkg/cache"
	xlogger "MoexPull/pkg/logger"
)

const (
	cachePrefix      = "securities"
	defaultListLimit = 10
)

// Security is one listed instrument. Preferred shares keep a pointer to
// their common-share base ticker so both can be offered on a match.
type Security struct {
	Ticker      string `json:"ticker"`
	Name        string `json:"name"`
	IsPreferred bool   `json:"is_preferred"`
	BaseTicker  string `json:"base_ticker,omitempty"`
}

// Directory is the in-memory instrument list plus its cache facade.
type Directory struct {
	path   string
	cache  pkgcache.Service
	ttl    time.Duration
	logger *xlogger.Logger

	mu     sync.RWMutex
	loaded bool
	list   []Security
	byTkr  map[string]Security
}

func NewDirectory(path string, c pkgcache.Service, ttl time.Duration, logger *xlogger.Logger) *Directory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Directory{path: path, cache: c, ttl: ttl, logger: logger}
}

// Load reads the instrument file and replaces the in-memory list. The file
// is ticker-and-name CSV; ';' and ',' delimiters are both accepted.
func (d *Directory) Load(ctx context.Context) error {
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("securities file: %w", err)
	}
	defer f.Close()

	list, err := parse(f)
	if err != nil {
		return err
	}
	markPreferred(list)

	byTkr := make(map[string]Security, len(list))
	for _, s := range list {
		byTkr[s.Ticker] = s
	}

	d.mu.Lock()
	d.list = list
	d.byTkr = byTkr
	d.loaded = true
	d.mu.Unlock()

	if d.cache != nil {
		if err := d.cache.DeleteByPattern(ctx, pkgcache.BuildPattern(cachePrefix+":")); err != nil {
			d.logger.Warn("stale search cache not cleared", xlogger.Error(err))
		}
	}
	d.logger.Info("securities directory loaded", xlogger.Int("count", len(list)))
	return nil
}

// Invalidate drops the in-memory list and cached search results; the next
// query reloads from disk.
func (d *Directory) Invalidate(ctx context.Context) {
	d.mu.Lock()
	d.loaded = false
	d.list = nil
	d.byTkr = nil
	d.mu.Unlock()

	if d.cache != nil {
		if err := d.cache.DeleteByPattern(ctx, pkgcache.BuildPattern(cachePrefix+":")); err != nil {
			d.logger.Warn("search cache not cleared", xlogger.Error(err))
		}
	}
}

// Resolve finds a single instrument by exact ticker or exact name match,
// case-insensitively.
func (d *Directory) Resolve(ctx context.Context, query string) (Security, bool, error) {
	if err := d.ensure(ctx); err != nil {
		return Security{}, false, err
	}
	q := strings.ToUpper(strings.TrimSpace(query))

	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.byTkr[q]; ok {
		return s, true, nil
	}
	for _, s := range d.list {
		if strings.EqualFold(s.Name, query) {
			return s, true, nil
		}
	}
	return Security{}, false, nil
}

// Search returns instruments whose ticker or name contains the query,
// tickers first, capped at limit.
func (d *Directory) Search(ctx context.Context, query string, limit int) ([]Security, error) {
	if err := d.ensure(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))

	key := pkgcache.GenerateKeyWithParams(cachePrefix, "search", q, limit)
	if d.cache != nil {
		var cached []Security
		if err := d.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	d.mu.RLock()
	var tickerHits, nameHits []Security
	for _, s := range d.list {
		switch {
		case strings.Contains(strings.ToLower(s.Ticker), q):
			tickerHits = append(tickerHits, s)
		case strings.Contains(strings.ToLower(s.Name), q):
			nameHits = append(nameHits, s)
		}
	}
	d.mu.RUnlock()

	out := append(tickerHits, nameHits...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Ticker) < len(out[j].Ticker)
	})
	if len(out) > limit {
		out = out[:limit]
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, out, d.ttl); err != nil {
			d.logger.Warn("search result not cached", xlogger.Error(err))
		}
	}
	return out, nil
}

// All returns the full directory snapshot.
func (d *Directory) All(ctx context.Context) ([]Security, error) {
	if err := d.ensure(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Security, len(d.list))
	copy(out, d.list)
	return out, nil
}

func (d *Directory) ensure(ctx context.Context) error {
	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if loaded {
		return nil
	}
	return d.Load(ctx)
}

// parse reads ticker/name records. The first row may be a header; it is
// skipped when it does not look like a ticker row.
func parse(r io.Reader) ([]Security, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("securities csv: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = detectDelimiter(raw)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Security
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("securities csv: %w", err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(rec[0]))
		if first {
			first = false
			if ticker == "TICKER" || ticker == "SECID" {
				continue
			}
		}
		name := ticker
		if len(rec) > 1 && strings.TrimSpace(rec[1]) != "" {
			name = strings.TrimSpace(rec[1])
		}
		out = append(out, Security{Ticker: ticker, Name: name})
	}
	return out, nil
}

// detectDelimiter sniffs the first line: exported MOEX lists use ';',
// hand-maintained ones use ','.
func detectDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	if bytes.ContainsRune(line, ';') {
		return ';'
	}
	return ','
}

// markPreferred links MOEX preferred shares (ticker = base + "P") to their
// common-share entry when both are listed.
func markPreferred(list []Security) {
	tickers := make(map[string]struct{}, len(list))
	for _, s := range list {
		tickers[s.Ticker] = struct{}{}
	}
	for i, s := range list {
		if !strings.HasSuffix(s.Ticker, "P") || len(s.Ticker) < 2 {
			continue
		}
		base := strings.TrimSuffix(s.Ticker, "P")
		if _, ok := tickers[base]; ok {
			list[i].IsPreferred = true
			list[i].BaseTicker = base
		}
	}
}
