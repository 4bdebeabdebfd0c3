// Package pipeline orchestrates one guarded classification run: exclusion
// lock, rate-limit check, retried invocation, durable counter update.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/logsentry/logsentry/internal/classify"
	"github.com/logsentry/logsentry/internal/core"
	"github.com/logsentry/logsentry/internal/counter"
	"github.com/logsentry/logsentry/internal/limiter"
	"github.com/logsentry/logsentry/internal/lockfile"
	"github.com/logsentry/logsentry/internal/retry"
)

// Locker acquires the cross-process exclusion lock.
type Locker interface {
	Acquire() (Releaser, error)
}

// Releaser frees an acquired lock.
type Releaser interface {
	Release() error
}

// CounterStore loads and saves the durable call accounting.
type CounterStore interface {
	Load() (*core.CounterState, error)
	Save(*core.CounterState) error
}

// Invoker performs one classification attempt.
type Invoker interface {
	Invoke(ctx context.Context, digest string) (*core.Verdict, error)
}

// LockAcquirer adapts lockfile.Acquirer to the Locker interface.
type LockAcquirer struct {
	*lockfile.Acquirer
}

// Acquire delegates to the underlying acquirer.
func (a LockAcquirer) Acquire() (Releaser, error) {
	handle, err := a.Acquirer.Acquire()
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Pipeline wires the guarded invocation components together.
type Pipeline struct {
	Lock     Locker
	Counters CounterStore
	Limits   core.Limits
	Invoker  Invoker
	Retry    *retry.Runner
	Clock    func() time.Time
	Logger   *logging.Logger
}

// Run executes one pipeline invocation. The returned outcome is always
// populated; the error carries conditions the caller maps to a nonzero exit
// (lock contention, fatal invocation failure).
func (p *Pipeline) Run(ctx context.Context, digest string) (*core.RunOutcome, error) {
	handle, err := p.Lock.Acquire()
	if err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			p.warn("another run is active, exiting", zap.Error(err))
			return core.LockContentionOutcome(), err
		}
		return core.LockContentionOutcome(), err
	}
	defer func() {
		if err := handle.Release(); err != nil {
			p.warn("failed to release lock", zap.Error(err))
		}
	}()

	state, err := p.Counters.Load()
	if err != nil {
		if errors.Is(err, counter.ErrCorrupt) {
			// Losing rate-limit history is preferable to refusing to run.
			p.warn("counter state unreadable, starting from empty history", zap.Error(err))
		} else {
			p.warn("counter state load failed", zap.Error(err))
		}
	}

	now := p.now()
	decision := limiter.Check(state, p.Limits, now)

	// last_run_at tracks invocations independent of outcome, so back-to-back
	// denied runs are still throttled by the minimum-interval rule.
	state.LastRunAt = now.UTC()

	if !decision.Allowed {
		p.saveState(state)
		p.info("call denied by rate limiter",
			zap.String("reason", string(decision.Reason)),
			zap.Duration("wait", decision.Wait))
		return core.RateLimitedOutcome(decision.Reason), nil
	}

	runner := p.Retry
	if runner == nil {
		runner = &retry.Runner{
			MaxRetries:  p.Limits.MaxRetries,
			BaseBackoff: p.Limits.BaseBackoff,
			IsFatal:     classify.IsFatal,
		}
	}

	verdict, invokeErr := runner.Run(ctx, func(ctx context.Context) (*core.Verdict, error) {
		return p.Invoker.Invoke(ctx, digest)
	})

	// An attempted call consumed quota whether or not it produced a verdict.
	if invokeErr == nil {
		state.Append(now, core.CallSuccess)
	} else {
		state.Append(now, core.CallFailure)
	}
	p.saveState(state)

	if invokeErr != nil {
		if classify.IsFatal(invokeErr) {
			p.warn("classification aborted", zap.Error(invokeErr))
			return core.FailedOutcome(invokeErr), invokeErr
		}
		p.warn("classification failed after retries", zap.Error(invokeErr))
		return core.FailedOutcome(invokeErr), nil
	}

	p.info("classification complete",
		zap.String("severity", verdict.Severity.String()),
		zap.Bool("issues_found", verdict.IssuesFound))
	return core.VerdictOutcome(verdict), nil
}

func (p *Pipeline) saveState(state *core.CounterState) {
	if err := p.Counters.Save(state); err != nil {
		// Losing rate-limit precision beats losing the alerting capability.
		p.warn("counter state save failed", zap.Error(err))
	}
}

func (p *Pipeline) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}

func (p *Pipeline) info(msg string, fields ...zap.Field) {
	if p.Logger != nil {
		p.Logger.Info(msg, fields...)
	}
}

func (p *Pipeline) warn(msg string, fields ...zap.Field) {
	if p.Logger != nil {
		p.Logger.Warn(msg, fields...)
	}
}
