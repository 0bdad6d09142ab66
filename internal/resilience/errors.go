package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TransientError marks a failure worth retrying: provider 5xx responses,
// timeouts, dropped connections. Wrap provider errors in it to opt them into
// the retry policy.
type TransientError struct {
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// RateLimitError reports a provider rate-limit response. It is retryable;
// when RetryAfter is set the retry waits at least that long.
type RateLimitError struct {
	// RetryAfter is the provider-suggested wait, zero when unknown.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// IsRetryable reports whether the resilience layer should retry after err.
// Timeouts count as transient; cancellation of the surrounding context does
// not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	// A per-call deadline expiring is a transient failure; the retry
	// policy decides whether to try again.
	return errors.Is(err, context.DeadlineExceeded)
}

// IsRateLimit reports whether err is a provider rate-limit response,
// returning the typed error when it is.
func IsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
