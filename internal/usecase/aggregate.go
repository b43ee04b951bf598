package usecase

import (
	"fmt"
	"math"
	"time"

	"MoexPull/internal/domain/models"
	drepo "MoexPull/internal/domain/repository"
)

// Aggregate compresses a sorted series of src-width candles into dst-width
// candles. dst must be a strict multiple of src; anything else is rejected
// rather than approximated. Buckets are aligned to the epoch via Truncate,
// so aggregating 1h->4h and then 4h->8h lands on the same bars as a direct
// 1h->8h pass.
func Aggregate(s models.Series, src, dst time.Duration) (models.Series, error) {
	if src <= 0 || dst <= src || dst%src != 0 {
		return nil, fmt.Errorf("%w: %s into %s", models.ErrUnsupportedAggregation, src, dst)
	}
	if len(s) == 0 {
		return models.Series{}, nil
	}

	out := make(models.Series, 0, len(s)/int(dst/src)+1)
	var cur models.Candle
	var open bool

	flush := func() {
		if open {
			out = append(out, cur)
			open = false
		}
	}

	for _, c := range s {
		bucket := c.Begin.Truncate(dst)
		if !open || !bucket.Equal(cur.Begin) {
			flush()
			cur = models.Candle{
				Begin:  bucket,
				Open:   c.Open,
				High:   c.High,
				Low:    c.Low,
				Close:  c.Close,
				Volume: volumeOrZero(c.Volume),
			}
			open = true
			continue
		}
		cur.High = nanMax(cur.High, c.High)
		cur.Low = nanMin(cur.Low, c.Low)
		cur.Close = c.Close
		cur.Volume += volumeOrZero(c.Volume)
	}
	flush()
	return out, nil
}

// AggregateTimeframe derives a timeframe that the feed does not serve
// natively from its source timeframe.
func AggregateTimeframe(s models.Series, tf drepo.Timeframe) (models.Series, error) {
	src := tf.FetchTimeframe()
	if src == tf {
		return s, nil
	}
	return Aggregate(s, src.Width(), tf.Width())
}

func volumeOrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func nanMax(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) || a >= b {
		return a
	}
	return b
}

func nanMin(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) || a <= b {
		return a
	}
	return b
}
