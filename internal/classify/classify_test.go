package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logsentry/logsentry/internal/core"
)

func newVerdictServer(t *testing.T, verdict map[string]any) *httptest.Server {
	t.Helper()
	content, err := json.Marshal(verdict)
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		resp := chatCompletionResponse{Choices: []choice{{
			Message:      chatResponseMessage{Content: string(content)},
			FinishReason: "stop",
		}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestInvokeSuccess(t *testing.T) {
	server := newVerdictServer(t, map[string]any{
		"severity":     "high",
		"issues_found": true,
		"summary":      "repeated ssh auth failures",
		"details":      map[string]string{"sshd": "412 failed logins from one host"},
	})
	defer server.Close()

	inv := NewInvoker(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	verdict, err := inv.Invoke(context.Background(), "sshd: failed password for root")
	require.NoError(t, err)
	assert.Equal(t, core.SeverityHigh, verdict.Severity)
	assert.True(t, verdict.IssuesFound)
	assert.Equal(t, "repeated ssh auth failures", verdict.Summary)
	assert.Equal(t, "412 failed logins from one host", verdict.Details["sshd"])
}

// A model claiming issues at severity none is contradicting itself; the
// severity wins.
func TestInvokeNormalizesNoneSeverity(t *testing.T) {
	server := newVerdictServer(t, map[string]any{
		"severity":     "none",
		"issues_found": true,
		"summary":      "nothing notable",
	})
	defer server.Close()

	inv := NewInvoker(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	verdict, err := inv.Invoke(context.Background(), "routine cron output")
	require.NoError(t, err)
	assert.Equal(t, core.SeverityNone, verdict.Severity)
	assert.False(t, verdict.IssuesFound)
}

func TestInvokeMissingAPIKeyFatal(t *testing.T) {
	inv := NewInvoker("http://unused.invalid", "", "gpt-4o-mini", time.Second)

	_, err := inv.Invoke(context.Background(), "digest")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestInvokeMissingModelFatal(t *testing.T) {
	inv := NewInvoker("http://unused.invalid", "test-key", "  ", time.Second)

	_, err := inv.Invoke(context.Background(), "digest")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestInvokeProviderStatuses(t *testing.T) {
	tests := []struct {
		status    int
		wantFatal bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusBadRequest, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "provider says no", tt.status)
			}))
			defer server.Close()

			inv := NewInvoker(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)
			_, err := inv.Invoke(context.Background(), "digest")
			require.Error(t, err)

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.wantFatal, IsFatal(err))
		})
	}
}

func TestInvokeMalformedPayloadTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := chatCompletionResponse{Choices: []choice{{
			Message: chatResponseMessage{Content: "I am not JSON, sorry."},
		}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	inv := NewInvoker(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	_, err := inv.Invoke(context.Background(), "digest")
	require.Error(t, err)
	assert.False(t, IsFatal(err))
}

func TestInvokeUnknownSeverityTransient(t *testing.T) {
	server := newVerdictServer(t, map[string]any{
		"severity":     "apocalyptic",
		"issues_found": true,
		"summary":      "overdramatic",
	})
	defer server.Close()

	inv := NewInvoker(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	_, err := inv.Invoke(context.Background(), "digest")
	require.Error(t, err)
	assert.False(t, IsFatal(err))
}

func TestInvokeEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(chatCompletionResponse{}))
	}))
	defer server.Close()

	inv := NewInvoker(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)

	_, err := inv.Invoke(context.Background(), "digest")
	require.Error(t, err)
	assert.False(t, IsFatal(err))
}

func TestIsFatalTimeoutTransient(t *testing.T) {
	assert.False(t, IsFatal(context.DeadlineExceeded))
	assert.False(t, IsFatal(fmt.Errorf("request failed: %w", context.DeadlineExceeded)))
	assert.False(t, IsFatal(errors.New("connection refused")))
	assert.False(t, IsFatal(nil))
}

func TestBuildMessagesClipsDigest(t *testing.T) {
	long := make([]byte, maxDigestBytes+500)
	for i := range long {
		long[i] = 'a'
	}

	messages := buildMessages(string(long))
	require.Len(t, messages, 2)
	assert.LessOrEqual(t, len(messages[1].Content), maxDigestBytes+len(userPromptFormat))
}
