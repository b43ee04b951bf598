package models

import "errors"

// Failure taxonomy for the candle pipeline. Callers distinguish these with
// errors.Is; lower layers wrap them with context via fmt.Errorf("%w").
var (
	// ErrInvalidTimeframe means the timeframe has no feed-side interval
	// code. Fatal, not retryable.
	ErrInvalidTimeframe = errors.New("invalid timeframe")

	// ErrInvalidRange means the requested window is empty or inverted.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrFeedUnavailable means the upstream returned a non-success status
	// or the transport failed. Transient; retry is the caller's call.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrMalformedPayload means a feed response could not be parsed or
	// lacked required columns.
	ErrMalformedPayload = errors.New("malformed feed payload")

	// ErrPartialHistory is returned together with a non-empty series when
	// pagination stopped early after at least one good page.
	ErrPartialHistory = errors.New("partial history")

	// ErrUnsupportedAggregation means a resample to a finer or non-multiple
	// timeframe was requested. Programmer error.
	ErrUnsupportedAggregation = errors.New("unsupported aggregation")

	// ErrEmptySeries means the fetch succeeded but yielded zero rows, so
	// callers can report "no data" instead of a failure.
	ErrEmptySeries = errors.New("empty series")
)
