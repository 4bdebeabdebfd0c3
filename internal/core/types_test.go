package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{"none", SeverityNone, false},
		{"low", SeverityLow, false},
		{"medium", SeverityMedium, false},
		{"high", SeverityHigh, false},
		{"critical", SeverityCritical, false},
		{"  HIGH  ", SeverityHigh, false},
		{"urgent", SeverityNone, true},
		{"", SeverityNone, true},
	}

	for _, tt := range tests {
		got, err := ParseSeverity(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityMedium.AtLeast(SeverityMedium))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
	assert.False(t, SeverityNone.AtLeast(SeverityLow))
}

func TestSeverityJSONRoundTrip(t *testing.T) {
	verdict := Verdict{Severity: SeverityHigh, IssuesFound: true, Summary: "disk filling up"}

	data, err := json.Marshal(verdict)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"high"`)

	var decoded Verdict
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, verdict, decoded)
}

func TestSeverityUnmarshalRejectsUnknown(t *testing.T) {
	var v Verdict
	err := json.Unmarshal([]byte(`{"severity":"catastrophic"}`), &v)
	assert.Error(t, err)
}

func TestCounterStateCountSince(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	state := &CounterState{}
	state.Append(now.Add(-2*time.Hour), CallSuccess)
	state.Append(now.Add(-30*time.Minute), CallSuccess)
	state.Append(now.Add(-5*time.Minute), CallFailure)

	assert.Equal(t, 2, state.CountSince(now.Add(-time.Hour)))
	assert.Equal(t, 3, state.CountSince(now.Add(-24*time.Hour)))
	assert.Equal(t, 0, (*CounterState)(nil).CountSince(now))
}

func TestLimitsValidate(t *testing.T) {
	valid := Limits{
		MaxPerHour:     10,
		MaxPerDay:      50,
		MinInterval:    5 * time.Minute,
		MaxRetries:     3,
		BaseBackoff:    30 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
	require.NoError(t, valid.Validate())

	broken := valid
	broken.MaxPerHour = 0
	assert.Error(t, broken.Validate())

	broken = valid
	broken.MinInterval = -time.Second
	assert.Error(t, broken.Validate())
}

func TestRunOutcomeConstructors(t *testing.T) {
	verdict := &Verdict{Severity: SeverityLow}
	assert.Equal(t, OutcomeVerdict, VerdictOutcome(verdict).Kind)
	assert.Equal(t, verdict, VerdictOutcome(verdict).Verdict)

	limited := RateLimitedOutcome(DenyHourlyCap)
	assert.Equal(t, OutcomeRateLimited, limited.Kind)
	assert.Equal(t, DenyHourlyCap, limited.Reason)

	assert.Equal(t, OutcomeLockContention, LockContentionOutcome().Kind)
	assert.Equal(t, "lock_contention", LockContentionOutcome().Kind.String())
}
