package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"podcast-digest/pkg/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
	DefaultMaxDelay    = time.Minute
)

// ExhaustedError is returned when every attempt failed with a retryable error.
// It matches domain.ErrRetryExhausted and unwraps to the last failure.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{domain.ErrRetryExhausted, e.Last}
}

// Executor runs an operation with bounded exponential backoff.
// The zero value is usable and applies the defaults.
type Executor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable decides which failures earn another attempt.
	// Defaults to errors in the domain.ErrSourceUnavailable class.
	Retryable func(error) bool

	Logger *slog.Logger

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns an executor with the given bounds.
func New(maxAttempts int, baseDelay time.Duration, logger *slog.Logger) *Executor {
	return &Executor{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Logger:      logger,
	}
}

// IsSourceUnavailable is the default retry classifier.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, domain.ErrSourceUnavailable)
}

// Do calls op until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The delay after failed attempt n is BaseDelay*2^(n-1).
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := e.maxAttempts()
	logger := e.logger().With("op", name)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retry", "attempts", attempt)
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !e.retryable(err) {
			return err
		}

		logger.Warn("operation failed", "attempt", attempt, "max_attempts", attempts, "error", err)
		if attempt == attempts {
			break
		}

		delay := e.backoff(attempt)
		logger.Debug("backing off before retry", "delay", delay)
		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: cancelled during backoff: %w", name, errors.Join(err, lastErr))
		}
	}

	return &ExhaustedError{Op: name, Attempts: attempts, Last: lastErr}
}

// Run is Do for operations that produce a value.
func Run[T any](ctx context.Context, e *Executor, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func (e *Executor) backoff(attempt int) time.Duration {
	base := e.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := e.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (e *Executor) maxAttempts() int {
	if e.MaxAttempts == 0 {
		return DefaultMaxAttempts
	}
	if e.MaxAttempts < 1 {
		return 1
	}
	return e.MaxAttempts
}

func (e *Executor) retryable(err error) bool {
	if e.Retryable != nil {
		return e.Retryable(err)
	}
	return IsSourceUnavailable(err)
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
