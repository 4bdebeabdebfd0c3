// Package limiter evaluates persisted call history against the configured
// limits. Windows slide relative to the evaluation instant, never aligned to
// clock boundaries, so a burst spanning an hour boundary is still capped.
package limiter

import (
	"time"

	"github.com/logsentry/logsentry/internal/core"
)

// Decision is the result of a rate-limit check.
type Decision struct {
	Allowed bool
	Reason  core.DenyReason
	Wait    time.Duration
}

// Check evaluates the checks in order; the first failing check supplies the
// deny reason. A denial does not consume a call slot.
func Check(state *core.CounterState, limits core.Limits, now time.Time) Decision {
	if state == nil {
		state = &core.CounterState{}
	}

	if !state.LastRunAt.IsZero() {
		elapsed := now.Sub(state.LastRunAt)
		if elapsed < limits.MinInterval {
			return Decision{Reason: core.DenyTooSoon, Wait: limits.MinInterval - elapsed}
		}
	}

	hourCount := state.CountSince(now.Add(-time.Hour))
	if hourCount >= limits.MaxPerHour {
		return Decision{Reason: core.DenyHourlyCap, Wait: waitUntilSlot(state, now.Add(-time.Hour), now)}
	}

	dayCount := state.CountSince(now.Add(-24 * time.Hour))
	if dayCount >= limits.MaxPerDay {
		return Decision{Reason: core.DenyDailyCap, Wait: waitUntilSlot(state, now.Add(-24*time.Hour), now)}
	}

	return Decision{Allowed: true}
}

// waitUntilSlot estimates when the oldest in-window record slides out.
func waitUntilSlot(state *core.CounterState, cutoff, now time.Time) time.Duration {
	var oldest time.Time
	for _, rec := range state.Records {
		if !rec.Timestamp.After(cutoff) {
			continue
		}
		if oldest.IsZero() || rec.Timestamp.Before(oldest) {
			oldest = rec.Timestamp
		}
	}
	if oldest.IsZero() {
		return 0
	}
	window := now.Sub(cutoff)
	return oldest.Add(window).Sub(now)
}
