package classify

import (
	"context"
	"errors"
	"fmt"
)

// ProviderError is returned when the provider responds with a non-2xx
// status. The body must never include API keys.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	return fmt.Sprintf("provider request failed: status %d: %s", e.StatusCode, e.Message)
}

// FatalError marks failures retrying cannot help: bad credentials, a
// malformed request, misconfiguration.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	if e == nil || e.Err == nil {
		return "fatal classification error"
	}
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsFatal classifies an invocation error. Auth failures and request
// rejections are fatal; timeouts, 429s, 5xx responses, network errors, and
// malformed response bodies are transient and worth a retry.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var fatal *FatalError
	if errors.As(err, &fatal) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		switch {
		case perr.StatusCode == 401 || perr.StatusCode == 403:
			return true
		case perr.StatusCode == 429:
			return false
		case perr.StatusCode >= 500 && perr.StatusCode <= 599:
			return false
		case perr.StatusCode >= 400 && perr.StatusCode <= 499:
			return true
		}
	}

	return false
}
