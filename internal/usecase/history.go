package usecase

import (
	"context"
	"fmt"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
	xlogger "MoexPull/pkg/logger"
)

// HistoryLoader assembles a complete candle series for an arbitrary date
// range by driving the feed page by page. Pages are fetched strictly
// sequentially: each window's start depends on the previous page's last bar.
type HistoryLoader struct {
	feed    drepo.Feed
	metrics drepo.Metrics
	logger  *xlogger.Logger

	// pageSize is the feed's per-request row cap. A page shorter than this
	// is the final one. The cap is an observed property of the feed, so it
	// is configuration, not a constant.
	pageSize int
	maxPages int
}

func NewHistoryLoader(feed drepo.Feed, metrics drepo.Metrics, logger *xlogger.Logger, pageSize, maxPages int) *HistoryLoader {
	if pageSize <= 0 {
		pageSize = 500
	}
	if maxPages <= 0 {
		maxPages = 100
	}
	return &HistoryLoader{feed: feed, metrics: metrics, logger: logger, pageSize: pageSize, maxPages: maxPages}
}

// Load returns a gap-free, deduplicated page set covering [from, till].
// If a page after the first fails, or the safety page bound is reached
// before the range is covered, the accumulated series is returned
// together with ErrPartialHistory instead of being discarded.
func (l *HistoryLoader) Load(ctx context.Context, ticker string, tf drepo.Timeframe, from, till time.Time) (*models.Page, error) {
	out := &models.Page{HasOpen: true, HasHigh: true, HasLow: true, HasVolume: true}
	cursor := from
	complete := false

	for pageNo := 0; pageNo < l.maxPages; pageNo++ {
		if !cursor.Before(till) {
			complete = true
			break
		}

		start := time.Now()
		page, err := l.feed.FetchPage(ctx, ticker, cursor, till, tf)
		l.metrics.RecordLatency("feed_page", time.Since(start).Seconds())
		if err != nil {
			l.metrics.RecordError("feed_page")
			if pageNo == 0 {
				return nil, fmt.Errorf("first page: %w", err)
			}
			l.logger.Warn("pagination stopped early",
				xlogger.String("ticker", ticker),
				xlogger.Int("pages", pageNo),
				xlogger.Error(err),
			)
			finishPage(out)
			return out, fmt.Errorf("%w: page %d: %v", models.ErrPartialHistory, pageNo+1, err)
		}

		l.metrics.RecordPageFetched(ticker, len(page.Candles))
		if len(page.Candles) == 0 {
			complete = true
			break
		}

		out.Candles = append(out.Candles, page.Candles...)
		// A column counts as present only if every page carried it.
		out.HasOpen = out.HasOpen && page.HasOpen
		out.HasHigh = out.HasHigh && page.HasHigh
		out.HasLow = out.HasLow && page.HasLow
		out.HasVolume = out.HasVolume && page.HasVolume

		if len(page.Candles) < l.pageSize {
			complete = true
			break
		}
		cursor = page.Candles[len(page.Candles)-1].Begin.Add(tf.PageStep())
	}

	finishPage(out)
	if !complete {
		// Hitting the page bound means the range was not fully covered;
		// the truncation must not look like a clean success.
		l.logger.Warn("page limit reached",
			xlogger.String("ticker", ticker),
			xlogger.Int("pages", l.maxPages),
		)
		return out, fmt.Errorf("%w: page limit %d reached", models.ErrPartialHistory, l.maxPages)
	}
	return out, nil
}

// finishPage restores the series invariants: ascending, unique timestamps,
// keep-last on collisions.
func finishPage(p *models.Page) {
	p.Candles.SortByTime()
	p.Candles = p.Candles.DedupeKeepLast()
}
