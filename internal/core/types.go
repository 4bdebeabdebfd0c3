// Package core defines the shared domain types for logsentry: severity
// grading, classification verdicts, persisted call accounting, and the
// tagged outcome of a pipeline run.
package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity grades a classification verdict. Values are ordered; comparisons
// against the alert threshold use this ordering.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityNone:     "none",
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

// String returns the lowercase severity name.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "none"
}

// AtLeast reports whether s meets or exceeds the threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s >= threshold
}

// MarshalJSON emits the severity name rather than its ordinal.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts any of the five severity names.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity resolves one of the five severity names.
func ParseSeverity(raw string) (Severity, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for sev, candidate := range severityNames {
		if candidate == name {
			return sev, nil
		}
	}
	return SeverityNone, fmt.Errorf("unknown severity: %q", raw)
}

// Verdict is the structured judgment returned by the classifier.
type Verdict struct {
	Severity    Severity          `json:"severity"`
	IssuesFound bool              `json:"issues_found"`
	Summary     string            `json:"summary"`
	Details     map[string]string `json:"details,omitempty"`
}

// CallOutcome records whether an attempted classification call succeeded.
type CallOutcome string

const (
	CallSuccess CallOutcome = "success"
	CallFailure CallOutcome = "failure"
)

// CallRecord is one attempted classification call. Records are append-only
// within a run; the persisted set defines the rate-limit history.
type CallRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Outcome   CallOutcome `json:"outcome"`
}

// CounterState is the durable aggregate backing the rate limiter. It is
// owned by the single running pipeline instance, protected transitively by
// the exclusion lock.
type CounterState struct {
	Records   []CallRecord `json:"records"`
	LastRunAt time.Time    `json:"last_run_at"`
}

// CountSince returns the number of records with a timestamp after cutoff.
func (s *CounterState) CountSince(cutoff time.Time) int {
	if s == nil {
		return 0
	}
	count := 0
	for _, rec := range s.Records {
		if rec.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

// Append adds a call record to the state.
func (s *CounterState) Append(at time.Time, outcome CallOutcome) {
	s.Records = append(s.Records, CallRecord{Timestamp: at.UTC(), Outcome: outcome})
}

// Limits carries the immutable rate-limit and retry configuration.
type Limits struct {
	MaxPerHour     int           `mapstructure:"max_per_hour"`
	MaxPerDay      int           `mapstructure:"max_per_day"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BaseBackoff    time.Duration `mapstructure:"base_backoff"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Validate rejects non-positive limit values.
func (l Limits) Validate() error {
	switch {
	case l.MaxPerHour <= 0:
		return fmt.Errorf("max_per_hour must be positive, got %d", l.MaxPerHour)
	case l.MaxPerDay <= 0:
		return fmt.Errorf("max_per_day must be positive, got %d", l.MaxPerDay)
	case l.MinInterval <= 0:
		return fmt.Errorf("min_interval must be positive, got %s", l.MinInterval)
	case l.MaxRetries <= 0:
		return fmt.Errorf("max_retries must be positive, got %d", l.MaxRetries)
	case l.BaseBackoff <= 0:
		return fmt.Errorf("base_backoff must be positive, got %s", l.BaseBackoff)
	case l.RequestTimeout <= 0:
		return fmt.Errorf("request_timeout must be positive, got %s", l.RequestTimeout)
	}
	return nil
}

// DenyReason identifies which rate-limit check rejected a call attempt.
type DenyReason string

const (
	DenyTooSoon   DenyReason = "too_soon"
	DenyHourlyCap DenyReason = "hourly_cap"
	DenyDailyCap  DenyReason = "daily_cap"
)

// OutcomeKind tags a RunOutcome variant.
type OutcomeKind int

const (
	OutcomeVerdict OutcomeKind = iota
	OutcomeRateLimited
	OutcomeFailed
	OutcomeLockContention
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeVerdict:
		return "verdict"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFailed:
		return "failed"
	case OutcomeLockContention:
		return "lock_contention"
	default:
		return "unknown"
	}
}

// RunOutcome is the tagged result of a pipeline run. Exactly one variant is
// populated: Verdict for OutcomeVerdict, Reason for OutcomeRateLimited, Err
// for OutcomeFailed.
type RunOutcome struct {
	Kind    OutcomeKind
	Verdict *Verdict
	Reason  DenyReason
	Err     error
}

// VerdictOutcome wraps a successful classification.
func VerdictOutcome(v *Verdict) *RunOutcome {
	return &RunOutcome{Kind: OutcomeVerdict, Verdict: v}
}

// RateLimitedOutcome reports a denied call attempt.
func RateLimitedOutcome(reason DenyReason) *RunOutcome {
	return &RunOutcome{Kind: OutcomeRateLimited, Reason: reason}
}

// FailedOutcome reports an invocation that did not produce a verdict.
func FailedOutcome(err error) *RunOutcome {
	return &RunOutcome{Kind: OutcomeFailed, Err: err}
}

// LockContentionOutcome reports that another run holds the exclusion lock.
func LockContentionOutcome() *RunOutcome {
	return &RunOutcome{Kind: OutcomeLockContention}
}
