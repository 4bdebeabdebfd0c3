package mail

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logsentry/logsentry/internal/core"
)

var testTime = time.Date(2026, 8, 30, 7, 15, 0, 0, time.UTC)

func TestComposeVerdict(t *testing.T) {
	verdict := &core.Verdict{
		Severity:    core.SeverityHigh,
		IssuesFound: true,
		Summary:     "web server under credential stuffing",
		Details: map[string]string{
			"nginx": "9k POSTs to /login from two subnets",
			"auth":  "lockouts spiked at 03:00",
		},
	}

	msg, err := ComposeVerdict(verdict, "web01", testTime)
	require.NoError(t, err)

	assert.Equal(t, "[web01] Log digest alert - severity HIGH - 2026-08-30", msg.Subject)
	assert.Contains(t, msg.TextBody, "Host: web01")
	assert.Contains(t, msg.TextBody, "Severity: HIGH")
	assert.Contains(t, msg.TextBody, "web server under credential stuffing")
	assert.Contains(t, msg.TextBody, "nginx: 9k POSTs")
	assert.Contains(t, msg.HTMLBody, "Severity: HIGH")
	assert.Contains(t, msg.HTMLBody, "#f8d7da")

	// Findings are rendered in a stable order.
	assert.Less(t, strings.Index(msg.TextBody, "auth:"), strings.Index(msg.TextBody, "nginx:"))
}

func TestComposeVerdictNoFindings(t *testing.T) {
	verdict := &core.Verdict{Severity: core.SeverityLow, Summary: "minor noise"}

	msg, err := ComposeVerdict(verdict, "web01", testTime)
	require.NoError(t, err)
	assert.NotContains(t, msg.TextBody, "Findings:")
	assert.NotContains(t, msg.HTMLBody, "<h3>Findings</h3>")
}

func TestComposeVerdictEscapesHTML(t *testing.T) {
	verdict := &core.Verdict{
		Severity: core.SeverityMedium,
		Summary:  `<script>alert("x")</script>`,
	}

	msg, err := ComposeVerdict(verdict, "web01", testTime)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTMLBody, "<script>")
}

func TestComposeDegraded(t *testing.T) {
	msg, err := ComposeDegraded(errors.New("retries exhausted after 4 attempts"), "web01", testTime)
	require.NoError(t, err)

	assert.Equal(t, "[web01] Log digest analysis failed - 2026-08-30", msg.Subject)
	assert.Contains(t, msg.TextBody, "ANALYSIS FAILED")
	assert.Contains(t, msg.TextBody, "today's logs were not analyzed")
	assert.Contains(t, msg.TextBody, "retries exhausted after 4 attempts")
}

func TestComposeDegradedNilError(t *testing.T) {
	msg, err := ComposeDegraded(nil, "web01", testTime)
	require.NoError(t, err)
	assert.Contains(t, msg.TextBody, "unknown error")
}
