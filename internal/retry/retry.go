// Package retry holds the single retry policy used by the reconciliation
// engine's persistence calls, instead of ad-hoc loops at every call site.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy executes an operation with bounded exponential backoff.
// A nil Retryable treats every error as retryable.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
}

// Do runs fn until it succeeds, the error is non-retryable, attempts are
// exhausted, or ctx is done. The delay doubles after each failed attempt.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
