// Package retry provides the bounded exponential-backoff primitive used
// by transient-aware adapters (the push sink today). Only errors marked
// transient are ever retried; everything else fails on the first
// attempt.
package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks an error as a retryable condition.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether an error (anywhere in its chain) was
// marked transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Do runs fn up to attempts times, doubling the delay after each
// transient failure. A non-transient error, or context cancellation,
// stops immediately.
func Do(ctx context.Context, attempts int, delay time.Duration, logger *zap.Logger, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if !IsTransient(last) || attempt == attempts {
			return last
		}

		logger.Warn("Retrying after transient error",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(last))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return last
}
