// Package classify performs exactly one call per invocation to the external
// classifier and turns its loosely-typed JSON reply into a typed Verdict at
// the boundary, so the rest of the pipeline never touches untyped data.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/logsentry/logsentry/internal/core"
)

// Invoker serializes the digest into the classifier's request shape, issues
// one network call, and deserializes the response into a Verdict.
type Invoker struct {
	Client    *Client
	Model     string
	MaxTokens int
}

// NewInvoker wires a client for the given provider settings.
func NewInvoker(baseURL, apiKey, model string, timeout time.Duration) *Invoker {
	client := NewClient(baseURL, apiKey)
	client.Timeout = timeout
	return &Invoker{Client: client, Model: model, MaxTokens: 1000}
}

type verdictPayload struct {
	Severity    string            `json:"severity"`
	IssuesFound bool              `json:"issues_found"`
	Summary     string            `json:"summary"`
	Details     map[string]string `json:"details"`
}

// Invoke performs a single classification attempt. Malformed or
// schema-violating responses are transient errors; the retry controller
// decides whether another attempt is worthwhile.
func (inv *Invoker) Invoke(ctx context.Context, digest string) (*core.Verdict, error) {
	if strings.TrimSpace(inv.Model) == "" {
		return nil, &FatalError{Err: fmt.Errorf("model is required")}
	}

	req := &chatCompletionRequest{
		Model:          inv.Model,
		Messages:       buildMessages(digest),
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	if inv.MaxTokens > 0 {
		req.MaxTokens = &inv.MaxTokens
	}

	text, err := inv.Client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	return parseVerdict(text)
}

func parseVerdict(text string) (*core.Verdict, error) {
	var payload verdictPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("malformed verdict payload: %w", err)
	}

	severity, err := core.ParseSeverity(payload.Severity)
	if err != nil {
		return nil, fmt.Errorf("malformed verdict payload: %w", err)
	}

	verdict := &core.Verdict{
		Severity:    severity,
		IssuesFound: payload.IssuesFound,
		Summary:     strings.TrimSpace(payload.Summary),
		Details:     payload.Details,
	}

	// Severity none implies no issues; normalize rather than trust the model.
	if verdict.Severity == core.SeverityNone {
		verdict.IssuesFound = false
	}

	return verdict, nil
}
