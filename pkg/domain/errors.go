package domain

import "errors"

// Error taxonomy shared by sources, the retry executor and the run loop.
// Callers classify with errors.Is; concrete errors wrap one of these.
var (
	// ErrSourceUnavailable marks transient upstream failures (network, timeouts,
	// 5xx, rate limiting, a page element that never appeared). Retryable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrParseFailure marks upstream content that arrived but could not be
	// interpreted (empty feed, unreadable archive file). Not retryable.
	ErrParseFailure = errors.New("parse failure")

	// ErrRetryExhausted tags the last failure once all attempts are used.
	ErrRetryExhausted = errors.New("retry exhausted")

	// ErrInvalidConfig marks a podcast configuration the dispatcher cannot act on.
	ErrInvalidConfig = errors.New("invalid config")
)
