package moex

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
	"MoexPull/internal/service/ratelimit"
	xhttp "MoexPull/pkg/http"
	xlogger "MoexPull/pkg/logger"
	"MoexPull/pkg/util"
)

// beginLayout is the timestamp format of the ISS "begin" column. Daily and
// coarser payloads may carry a bare date.
const (
	beginLayout = "2006-01-02 15:04:05"
	dateLayout  = util.DateLayout

	// csvSkipRows is the number of preamble rows before the column header.
	csvSkipRows = 2
)

// Config holds feed client settings.
type Config struct {
	BaseURL   string
	Engine    string
	Market    string
	Board     string
	UserAgent string
	Timeout   time.Duration

	RateCapacity     float64
	RateRefillPerSec float64
}

// Client fetches candle pages from the MOEX ISS endpoint. It is a
// single-shot primitive: one call, one bounded request, no retries.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	logger  *xlogger.Logger
}

// New creates a MOEX ISS candle feed client.
func New(cfg Config, logger *xlogger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://iss.moex.com"
	}
	if cfg.Engine == "" {
		cfg.Engine = "stock"
	}
	if cfg.Market == "" {
		cfg.Market = "shares"
	}
	if cfg.Board == "" {
		cfg.Board = "TQBR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateCapacity <= 0 {
		cfg.RateCapacity = 5
	}
	if cfg.RateRefillPerSec <= 0 {
		cfg.RateRefillPerSec = 2
	}
	return &Client{
		cfg:     cfg,
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		limiter: ratelimit.New(),
		logger:  logger,
	}
}

// FetchPage issues one request for candles of ticker in [from, till] at the
// given timeframe and parses the delimited payload.
func (c *Client) FetchPage(ctx context.Context, ticker string, from, till time.Time, tf drepo.Timeframe) (*models.Page, error) {
	interval, ok := tf.IntervalCode()
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTimeframe, tf)
	}
	if !from.Before(till) {
		return nil, fmt.Errorf("%w: %s..%s", models.ErrInvalidRange, from.Format(dateLayout), till.Format(dateLayout))
	}

	if err := c.limiter.Wait(ctx, "moex", c.cfg.RateCapacity, c.cfg.RateRefillPerSec); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", models.ErrFeedUnavailable, err)
	}

	u := fmt.Sprintf("%s/iss/engines/%s/markets/%s/boards/%s/securities/%s/candles.csv",
		c.cfg.BaseURL, c.cfg.Engine, c.cfg.Market, c.cfg.Board, ticker)

	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: http.MethodGet,
		URL:    u,
		Headers: map[string]string{
			"User-Agent": c.cfg.UserAgent,
		},
		QueryParams: map[string][]string{
			"interval":    {strconv.Itoa(interval)},
			"from":        {windowBound(from, tf)},
			"till":        {windowBound(till, tf)},
			"iss.reverse": {"false"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrFeedUnavailable, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", models.ErrFeedUnavailable, err)
	}

	page, err := parseCandlesCSV(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("moex page fetched",
		xlogger.String("ticker", ticker),
		xlogger.String("tf", string(tf)),
		xlogger.Int("rows", len(page.Candles)),
	)
	return page, nil
}

// windowBound renders a window edge for the from/till query params.
// Intraday windows need datetime resolution: the loader advances the
// cursor by minutes or hours, and a date-only bound would request the
// same page again.
func windowBound(t time.Time, tf drepo.Timeframe) string {
	if tf.Intraday() {
		return t.Format(beginLayout)
	}
	return t.Format(dateLayout)
}

// parseCandlesCSV parses the semicolon-delimited ISS payload: a fixed
// preamble, then a named header row, then data rows.
func parseCandlesCSV(b []byte) (*models.Page, error) {
	lines := strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	if len(lines) <= csvSkipRows {
		return nil, fmt.Errorf("%w: payload too short", models.ErrMalformedPayload)
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[csvSkipRows:], "\n")))
	r.Comma = ';'
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", models.ErrMalformedPayload, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	beginIdx, haveBegin := col["begin"]
	closeIdx, haveClose := col["close"]
	if !haveBegin || !haveClose {
		return nil, fmt.Errorf("%w: missing begin/close columns, got %v", models.ErrMalformedPayload, header)
	}

	openIdx, hasOpen := col["open"]
	highIdx, hasHigh := col["high"]
	lowIdx, hasLow := col["low"]
	volIdx, hasVolume := col["volume"]

	page := &models.Page{
		HasOpen:   hasOpen,
		HasHigh:   hasHigh,
		HasLow:    hasLow,
		HasVolume: hasVolume,
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row: %v", models.ErrMalformedPayload, err)
		}
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		if beginIdx >= len(record) || closeIdx >= len(record) {
			return nil, fmt.Errorf("%w: short row %v", models.ErrMalformedPayload, record)
		}

		begin, err := parseBegin(record[beginIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: begin %q", models.ErrMalformedPayload, record[beginIdx])
		}
		closePx, err := strconv.ParseFloat(record[closeIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: close %q", models.ErrMalformedPayload, record[closeIdx])
		}

		page.Candles = append(page.Candles, models.Candle{
			Begin:  begin,
			Close:  closePx,
			Open:   fieldOrNaN(record, openIdx, hasOpen),
			High:   fieldOrNaN(record, highIdx, hasHigh),
			Low:    fieldOrNaN(record, lowIdx, hasLow),
			Volume: fieldOrNaN(record, volIdx, hasVolume),
		})
	}

	return page, nil
}

func parseBegin(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(beginLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}

// fieldOrNaN returns the parsed float or NaN when the column is absent or
// the cell is empty/unparsable. Column-level gaps are the repairer's job.
func fieldOrNaN(record []string, idx int, present bool) float64 {
	if !present || idx >= len(record) {
		return math.NaN()
	}
	s := strings.TrimSpace(record[idx])
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
