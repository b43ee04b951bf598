package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	pagesFetched *prometheus.CounterVec
	rowsFetched  *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastClose    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		pagesFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moexpull_feed_pages_total",
				Help: "Total number of candle pages fetched from the feed",
			},
			[]string{"ticker"},
		),
		rowsFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moexpull_feed_rows_total",
				Help: "Total number of candle rows fetched from the feed",
			},
			[]string{"ticker"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moexpull_history_cache_hits_total",
				Help: "Total number of fresh history cache hits",
			},
			[]string{"timeframe"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moexpull_history_cache_misses_total",
				Help: "Total number of history cache misses and stale entries",
			},
			[]string{"timeframe"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moexpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "moexpull_last_close",
				Help: "Last close price served for a ticker",
			},
			[]string{"ticker"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moexpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPageFetched records one fetched feed page and its row count.
func (r *Recorder) RecordPageFetched(ticker string, rows int) {
	r.pagesFetched.WithLabelValues(ticker).Inc()
	r.rowsFetched.WithLabelValues(ticker).Add(float64(rows))
}

// RecordCacheHit records a fresh cache hit.
func (r *Recorder) RecordCacheHit(tf string) {
	r.cacheHits.WithLabelValues(tf).Inc()
}

// RecordCacheMiss records a cache miss or stale entry.
func (r *Recorder) RecordCacheMiss(tf string) {
	r.cacheMisses.WithLabelValues(tf).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordLastClose records the last close price for a ticker.
func (r *Recorder) RecordLastClose(ticker string, price float64) {
	r.lastClose.WithLabelValues(ticker).Set(price)
}
