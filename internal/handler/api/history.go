package api

import (
	"errors"
	"math"
	"time"

	"MoexPull/internal/domain/models"
	"MoexPull/internal/service/securities"
	"MoexPull/internal/usecase"
	xhttp "MoexPull/pkg/http"
	xlogger "MoexPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HistoryHandler serves candle history, indicators and the securities
// directory over HTTP.
type HistoryHandler struct {
	logger *xlogger.Logger
	uc     *usecase.HistoryUseCase
	dir    *securities.Directory
}

func NewHistoryHandler(logger *xlogger.Logger, uc *usecase.HistoryUseCase, dir *securities.Directory) *HistoryHandler {
	return &HistoryHandler{logger: logger, uc: uc, dir: dir}
}

func (h *HistoryHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/candles", h.Candles)
	g.GET("/indicators", h.Indicators)
	g.GET("/securities", h.Securities)
	g.DELETE("/candles", h.InvalidateCandles)

	e.GET("/healthz", func(c echo.Context) error {
		return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
	})
}

// CandleDTO is the wire form of one candle. Prices are plain numbers; a
// candle never leaves the repairer with NaN fields.
type CandleDTO struct {
	Begin  time.Time `json:"begin"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

type CandlesResponse struct {
	Ticker    string      `json:"ticker"`
	Timeframe string      `json:"timeframe"`
	Candles   []CandleDTO `json:"candles"`
}

// IndicatorsResponse carries the indicator columns aligned with the candle
// timestamps. Undefined warm-up values are JSON nulls.
type IndicatorsResponse struct {
	Ticker     string                `json:"ticker"`
	Timeframe  string                `json:"timeframe"`
	Begin      []time.Time           `json:"begin"`
	Columns    []string              `json:"columns"`
	Indicators map[string][]*float64 `json:"indicators"`
}

type SecuritiesResponse struct {
	Securities []securities.Security `json:"securities"`
}

func (h *HistoryHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetHistory(c.Request().Context(), usecase.HistoryQuery{
		Ticker: req.Ticker, TF: req.TF, Years: req.Years,
	})
	if err != nil {
		return h.historyError(c, err)
	}

	body := CandlesResponse{
		Ticker:    res.Ticker,
		Timeframe: string(res.Timeframe),
		Candles:   toCandleDTOs(res.Candles),
	}
	if res.Partial {
		return xhttp.SuccessResponseWithWarning(c, body, "history is incomplete: the feed failed mid-pagination")
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *HistoryHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetIndicators(c.Request().Context(), usecase.HistoryQuery{
		Ticker: req.Ticker, TF: req.TF, Years: req.Years,
	})
	if err != nil {
		return h.historyError(c, err)
	}

	begins := make([]time.Time, len(res.Candles))
	for i, cd := range res.Candles {
		begins[i] = cd.Begin
	}
	body := IndicatorsResponse{
		Ticker:     res.Ticker,
		Timeframe:  string(res.Timeframe),
		Begin:      begins,
		Columns:    res.Indicators.Columns,
		Indicators: toNullableColumns(res.Indicators),
	}
	if res.Partial {
		return xhttp.SuccessResponseWithWarning(c, body, "history is incomplete: the feed failed mid-pagination")
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *HistoryHandler) Securities(c echo.Context) error {
	req := &models.SecuritySearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	hits, err := h.dir.Search(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		h.logger.Error("securities search failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("securities directory unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, SecuritiesResponse{Securities: hits})
}

// InvalidateCandles drops the cached series so the next read refetches.
func (h *HistoryHandler) InvalidateCandles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.uc.Invalidate(req.Ticker, req.TF, req.Years); err != nil {
		return h.historyError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "invalidated"})
}

// historyError maps pipeline sentinels to HTTP errors.
func (h *HistoryHandler) historyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidTimeframe):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("unknown timeframe").WithError(err))
	case errors.Is(err, models.ErrInvalidRange):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("empty date range").WithError(err))
	case errors.Is(err, models.ErrEmptySeries):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no candles for this ticker and period").WithError(err))
	case errors.Is(err, models.ErrFeedUnavailable), errors.Is(err, models.ErrMalformedPayload):
		h.logger.Error("feed failure", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError("exchange feed unavailable").WithError(err))
	default:
		h.logger.Error("history pipeline failure", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}

func toCandleDTOs(s models.Series) []CandleDTO {
	out := make([]CandleDTO, len(s))
	for i, cd := range s {
		out[i] = CandleDTO{
			Begin: cd.Begin, Open: cd.Open, High: cd.High,
			Low: cd.Low, Close: cd.Close, Volume: cd.Volume,
		}
	}
	return out
}

// toNullableColumns replaces NaN with nil so the set survives JSON encoding.
func toNullableColumns(set *models.IndicatorSet) map[string][]*float64 {
	out := make(map[string][]*float64, len(set.Columns))
	for _, name := range set.Columns {
		src, _ := set.Get(name)
		col := make([]*float64, len(src))
		for i, v := range src {
			if !math.IsNaN(v) {
				val := v
				col[i] = &val
			}
		}
		out[name] = col
	}
	return out
}
