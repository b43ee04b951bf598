package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
	xlogger "MoexPull/pkg/logger"
	"MoexPull/pkg/util"
)

// HistoryUseCase is the read path behind the API: resolve the request to a
// cached series or drive the full fetch-aggregate-repair pipeline, then
// optionally layer indicators on top.
type HistoryUseCase struct {
	loader  *HistoryLoader
	store   drepo.HistoryStore
	metrics drepo.Metrics
	logger  *xlogger.Logger

	defaultYears int
	now          func() time.Time
}

func NewHistoryUseCase(loader *HistoryLoader, store drepo.HistoryStore, metrics drepo.Metrics, logger *xlogger.Logger, defaultYears int) *HistoryUseCase {
	if defaultYears <= 0 {
		defaultYears = 1
	}
	return &HistoryUseCase{
		loader:       loader,
		store:        store,
		metrics:      metrics,
		logger:       logger,
		defaultYears: defaultYears,
		now:          time.Now,
	}
}

// HistoryQuery identifies one series.
type HistoryQuery struct {
	Ticker string
	TF     string
	Years  int
}

// HistoryResult carries the series plus a partial flag: when pagination
// broke mid-way the data that did arrive is still served, flagged rather
// than discarded.
type HistoryResult struct {
	Ticker    string
	Timeframe drepo.Timeframe
	Candles   models.Series
	Partial   bool
}

// IndicatorsResult extends a history result with the indicator columns for
// the timeframe's parameter profile.
type IndicatorsResult struct {
	HistoryResult
	Indicators *models.IndicatorSet
}

// GetHistory returns the repaired candle series for the query, served from
// the disk cache when fresh.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, q HistoryQuery) (*HistoryResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(q.Ticker))
	tf, err := resolveTimeframe(q.TF)
	if err != nil {
		return nil, err
	}
	years := q.Years
	if years <= 0 {
		years = uc.defaultYears
	}

	start := uc.now()
	partial := false
	series, err := uc.store.GetOrFetch(ctx, ticker, tf, years, func(ctx context.Context) (models.Series, error) {
		s, fetchErr := uc.buildSeries(ctx, ticker, tf, years)
		if fetchErr != nil {
			if errors.Is(fetchErr, models.ErrPartialHistory) && len(s) > 0 {
				partial = true
				return s, nil
			}
			return nil, fetchErr
		}
		return s, nil
	})
	uc.metrics.RecordLatency("get_history", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if n := len(series); n > 0 {
		uc.metrics.RecordLastClose(ticker, series[n-1].Close)
	}
	return &HistoryResult{Ticker: ticker, Timeframe: tf, Candles: series, Partial: partial}, nil
}

// GetIndicators computes the indicator set for the query's series using the
// parameter profile of its timeframe class.
func (uc *HistoryUseCase) GetIndicators(ctx context.Context, q HistoryQuery) (*IndicatorsResult, error) {
	hist, err := uc.GetHistory(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(hist.Candles) == 0 {
		return nil, models.ErrEmptySeries
	}
	set := ComputeIndicators(hist.Candles, drepo.ProfileFor(hist.Timeframe))
	return &IndicatorsResult{HistoryResult: *hist, Indicators: set}, nil
}

// Invalidate drops the cached series so the next read refetches.
func (uc *HistoryUseCase) Invalidate(ticker, tfRaw string, years int) error {
	tf, err := resolveTimeframe(tfRaw)
	if err != nil {
		return err
	}
	if years <= 0 {
		years = uc.defaultYears
	}
	return uc.store.Invalidate(strings.ToUpper(strings.TrimSpace(ticker)), tf, years)
}

// resolveTimeframe treats an empty value as the default and anything else
// strictly: unknown names are an error, not silently coerced.
func resolveTimeframe(raw string) (drepo.Timeframe, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return drepo.DefaultTimeframe(), nil
	}
	tf := drepo.Timeframe(raw)
	if !drepo.IsValidTimeframe(tf) {
		return "", models.ErrInvalidTimeframe
	}
	return tf, nil
}

// buildSeries runs the full pipeline: paginate at the feed's native
// timeframe, derive the target timeframe if needed, then repair.
func (uc *HistoryUseCase) buildSeries(ctx context.Context, ticker string, tf drepo.Timeframe, years int) (models.Series, error) {
	from, till := util.PeriodRange(uc.now(), years)

	page, err := uc.loader.Load(ctx, ticker, tf.FetchTimeframe(), from, till)
	if err != nil && !errors.Is(err, models.ErrPartialHistory) {
		return nil, err
	}
	loadErr := err

	series, aggErr := AggregateTimeframe(page.Candles, tf)
	if aggErr != nil {
		return nil, aggErr
	}
	page = &models.Page{
		Candles:   series,
		HasOpen:   page.HasOpen,
		HasHigh:   page.HasHigh,
		HasLow:    page.HasLow,
		HasVolume: page.HasVolume,
	}

	repaired := Repair(page)
	uc.logger.Debug("series built",
		xlogger.String("ticker", ticker),
		xlogger.String("timeframe", string(tf)),
		xlogger.Int("candles", len(repaired)),
	)
	return repaired, loadErr
}
