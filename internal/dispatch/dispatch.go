// Package dispatch maps a run outcome to a notification action. It decides
// whether and with what severity to notify; rendering and delivery belong to
// the mail collaborator.
package dispatch

import "github.com/logsentry/logsentry/internal/core"

// Action is the notification decision for a run.
type Action int

const (
	// Suppress emits nothing. Rate-limited and lock-contended runs are
	// intentionally indistinguishable from a quiet night.
	Suppress Action = iota
	// Send emits the severity-graded alert.
	Send
	// SendDegraded emits the analysis-failure notice. A silent analysis
	// failure is itself an operational risk worth surfacing.
	SendDegraded
)

func (a Action) String() string {
	switch a {
	case Send:
		return "send"
	case SendDegraded:
		return "send_degraded"
	default:
		return "suppress"
	}
}

// Decide applies the threshold policy to an outcome.
func Decide(outcome *core.RunOutcome, threshold core.Severity, alwaysSendSummary bool) Action {
	if outcome == nil {
		return Suppress
	}

	switch outcome.Kind {
	case core.OutcomeVerdict:
		if outcome.Verdict == nil {
			return Suppress
		}
		if alwaysSendSummary || outcome.Verdict.Severity.AtLeast(threshold) {
			return Send
		}
		return Suppress
	case core.OutcomeFailed:
		return SendDegraded
	default:
		// RateLimited, LockContention: operational signals, not security
		// ones. Logged by the pipeline, never mailed.
		return Suppress
	}
}
