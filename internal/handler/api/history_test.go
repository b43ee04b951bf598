package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
	"MoexPull/internal/service/securities"
	"MoexPull/internal/usecase"
	"MoexPull/pkg/cache"
	"MoexPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

type nopMetrics struct{}

func (nopMetrics) RecordPageFetched(string, int)   {}
func (nopMetrics) RecordCacheHit(string)           {}
func (nopMetrics) RecordCacheMiss(string)          {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordLastClose(string, float64) {}

// stubFeed serves the same fixed page for any window.
type stubFeed struct {
	page *models.Page
	err  error
}

func (f *stubFeed) FetchPage(context.Context, string, time.Time, time.Time, drepo.Timeframe) (*models.Page, error) {
	return f.page, f.err
}

// stubStore delegates to fetch and mirrors the disk store's refusal to
// hold empty series.
type stubStore struct{}

func (stubStore) GetOrFetch(ctx context.Context, _ string, _ drepo.Timeframe, _ int, fetch func(context.Context) (models.Series, error)) (models.Series, error) {
	s, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, models.ErrEmptySeries
	}
	return s, nil
}

func (stubStore) Invalidate(string, drepo.Timeframe, int) error { return nil }

func newHandler(t *testing.T, feed drepo.Feed) *HistoryHandler {
	t.Helper()
	log := logger.Nop()
	loader := usecase.NewHistoryLoader(feed, nopMetrics{}, log, 500, 10)
	uc := usecase.NewHistoryUseCase(loader, stubStore{}, nopMetrics{}, log, 1)

	secFile := filepath.Join(t.TempDir(), "companies.csv")
	if err := os.WriteFile(secFile, []byte("SBER;Sberbank\nGAZP;Gazprom\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := securities.NewDirectory(secFile, cache.NewMemoryCache(), time.Minute, log)
	return NewHistoryHandler(log, uc, dir)
}

func doRequest(t *testing.T, h *HistoryHandler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func dailyPage(n int) *models.Page {
	p := &models.Page{HasOpen: true, HasHigh: true, HasLow: true, HasVolume: true}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p.Candles = append(p.Candles, models.Candle{
			Begin: start.AddDate(0, 0, i), Open: 100, High: 102, Low: 99, Close: 101, Volume: 1000,
		})
	}
	return p
}

func TestCandlesEndpoint(t *testing.T) {
	h := newHandler(t, &stubFeed{page: dailyPage(5)})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/candles?ticker=SBER&tf=daily")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status string          `json:"status"`
		Data   CandlesResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Data.Ticker != "SBER" || len(resp.Data.Candles) != 5 {
		t.Fatalf("data = %+v", resp.Data)
	}
}

func TestCandlesValidation(t *testing.T) {
	h := newHandler(t, &stubFeed{page: dailyPage(1)})

	// Missing ticker, unknown timeframe, period out of range, then a
	// non-alphanumeric ticker.
	cases := []string{
		"/api/v1/candles",
		"/api/v1/candles?ticker=SBER&tf=15m",
		"/api/v1/candles?ticker=SBER&years=99",
		"/api/v1/candles?ticker=SB%20ER&tf=daily",
	}
	for _, target := range cases {
		if rec := doRequest(t, h, http.MethodGet, target); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestCandlesFeedDown(t *testing.T) {
	h := newHandler(t, &stubFeed{err: models.ErrFeedUnavailable})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/candles?ticker=SBER")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestCandlesNoData(t *testing.T) {
	h := newHandler(t, &stubFeed{page: dailyPage(0)})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/candles?ticker=NOPE")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestIndicatorsEndpointEncodesWarmupAsNull(t *testing.T) {
	h := newHandler(t, &stubFeed{page: dailyPage(30)})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/indicators?ticker=SBER&tf=daily")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data IndicatorsResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	rsi, ok := resp.Data.Indicators["RSI_14"]
	if !ok {
		t.Fatalf("columns = %v, want RSI_14 present", resp.Data.Columns)
	}
	if len(rsi) != 30 {
		t.Fatalf("RSI column has %d values, want 30", len(rsi))
	}
	if rsi[0] != nil {
		t.Fatalf("rsi[0] = %v, want null before the first delta", *rsi[0])
	}
}

func TestSecuritiesEndpoint(t *testing.T) {
	h := newHandler(t, &stubFeed{page: dailyPage(1)})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/securities?q=sber")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data SecuritiesResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(resp.Data.Securities) != 1 || resp.Data.Securities[0].Ticker != "SBER" {
		t.Fatalf("securities = %+v", resp.Data.Securities)
	}
}

func TestHealthz(t *testing.T) {
	h := newHandler(t, &stubFeed{page: dailyPage(1)})
	if rec := doRequest(t, h, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
