package repository

import (
	"context"
	"time"

	"MoexPull/internal/domain/models"
)

// Feed retrieves one page of candles from the upstream exchange. A single
// call issues exactly one network request; retries and pagination belong to
// the caller.
type Feed interface {
	FetchPage(ctx context.Context, ticker string, from, till time.Time, tf Timeframe) (*models.Page, error)
}

// HistoryStore caches repaired series on disk keyed by
// (ticker, timeframe, period, fetch day).
type HistoryStore interface {
	GetOrFetch(ctx context.Context, ticker string, tf Timeframe, periodYears int, fetch func(ctx context.Context) (models.Series, error)) (models.Series, error)
	Invalidate(ticker string, tf Timeframe, periodYears int) error
}

type Metrics interface {
	RecordPageFetched(ticker string, rows int)
	RecordCacheHit(tf string)
	RecordCacheMiss(tf string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordLastClose(ticker string, price float64)
}
