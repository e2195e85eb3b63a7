// Package retry wraps a single flaky call with exponential backoff.
//
// Failures are classified by type: rate-limit and connection errors are
// retried on the schedule BaseDelay * 2^attempt, malformed responses are
// retried on the same schedule and the same budget, and anything else is
// returned immediately. Rate-limit waits get a bounded random offset so
// concurrently throttled calls do not all wake at once.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// Sleep and Jitter exist so tests can observe waits deterministically.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() time.Duration
}

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	if o.Jitter == nil {
		o.Jitter = func() time.Duration {
			return time.Duration(rand.Int63n(int64(time.Second)))
		}
	}
	return o
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget runs out. Exhaustion is reported as an error wrapping
// ErrBudgetExhausted together with the last failure, so callers can either
// degrade to a sentinel result or propagate.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !Retryable(err) {
			return zero, err
		}
		lastErr = err
		if attempt == opts.MaxAttempts-1 {
			break
		}

		delay := opts.BaseDelay << attempt
		var rl *RateLimitError
		if errors.As(err, &rl) {
			delay += opts.Jitter()
		}
		if err := opts.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrBudgetExhausted, opts.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
