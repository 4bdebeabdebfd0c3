// Package retry drives a single classification attempt through bounded
// retries with exponential backoff. Retries are sequential by design: there
// is no concurrency benefit against a rate-limited endpoint.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/logsentry/logsentry/internal/core"
)

// ErrExhausted is returned when every attempt failed transiently. It wraps
// the last attempt error.
var ErrExhausted = errors.New("retries exhausted")

// AttemptFunc performs one classification attempt.
type AttemptFunc func(ctx context.Context) (*core.Verdict, error)

// Runner executes attempts under the configured policy.
type Runner struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BaseBackoff is doubled before each retry: base, 2*base, 4*base, ...
	BaseBackoff time.Duration
	// IsFatal reports errors that retrying cannot help; they abort
	// immediately. Nil treats every error as transient.
	IsFatal func(error) bool
	// Sleep is injectable for tests; nil uses a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run invokes attempt up to MaxRetries+1 times. Fatal errors propagate
// unchanged with zero sleeps; transient exhaustion yields ErrExhausted.
func (r *Runner) Run(ctx context.Context, attempt AttemptFunc) (*core.Verdict, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for i := 0; i <= r.MaxRetries; i++ {
		if i > 0 {
			backoff := r.BaseBackoff << (i - 1)
			if err := sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		verdict, err := attempt(ctx)
		if err == nil {
			return verdict, nil
		}
		if r.IsFatal != nil && r.IsFatal(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.MaxRetries+1, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
