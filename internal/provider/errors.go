package provider

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/resilience"
	"github.com/brandlens/brandlens-cli/pkg/chatapi"
)

// Transport-level provider failures. All of them are handed to the retry
// executor before surfacing as a final per-question failure.
var (
	// ErrTimeout means the per-call timer fired before the transport
	// returned; the in-flight call was abandoned.
	ErrTimeout = eris.New("provider: call timed out")

	// ErrRateLimited means the provider rejected the call with a 429.
	ErrRateLimited = eris.New("provider: rate limited")

	// ErrQuotaExceeded means the account's usage quota is exhausted.
	ErrQuotaExceeded = eris.New("provider: quota exceeded")
)

// CallError is any other transport failure, carrying the provider name and
// the underlying error.
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return "provider " + e.Provider + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err belongs to the provider error
// taxonomy.
func IsProviderError(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var ce *CallError
	return errors.As(err, &ce)
}

// classify maps a raw transport error onto the taxonomy. Status codes are
// authoritative when available; otherwise message heuristics decide, since
// SDK error types differ per backend. Retryable failures (rate limits,
// timeouts, 5xx) come back wrapped as transient so the circuit breaker and
// failed-question records treat them as such; errors.Is identity against
// the sentinels holds through the wrapper.
func classify(providerName string, err error) error {
	if err == nil {
		return nil
	}

	var se *chatapi.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 429:
			return resilience.NewTransientError(ErrRateLimited, se.StatusCode)
		case se.StatusCode == 402 || strings.Contains(strings.ToLower(se.Body), "quota"):
			return ErrQuotaExceeded
		case se.StatusCode == 408 || se.StatusCode == 504:
			return resilience.NewTransientError(ErrTimeout, se.StatusCode)
		case resilience.IsTransientHTTPStatus(se.StatusCode):
			return resilience.NewTransientError(&CallError{Provider: providerName, Err: err}, se.StatusCode)
		}
		return &CallError{Provider: providerName, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return resilience.NewTransientError(ErrRateLimited, 0)
	case strings.Contains(msg, "quota") || strings.Contains(msg, "insufficient credit"):
		return ErrQuotaExceeded
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return resilience.NewTransientError(ErrTimeout, 0)
	}
	return &CallError{Provider: providerName, Err: err}
}
