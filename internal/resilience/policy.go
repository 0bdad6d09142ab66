package resilience

import (
	"context"
	"math/rand"
	"time"
)

// Default retry policy values.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 30 * time.Second
	DefaultCallTimeout = 60 * time.Second
)

// Policy bounds the retry behaviour of an Executor. The delay before retry
// n is BaseDelay·2^n plus jitter in [0, BaseDelay), capped at MaxDelay.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, including the
	// first one.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// withDefaults fills zero-valued fields.
func (p Policy) withDefaults() Policy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// Delay computes the backoff before retry n (n starts at 0).
func (p Policy) Delay(n int) time.Duration {
	backoff := p.BaseDelay << uint(n)
	if backoff <= 0 || backoff > p.MaxDelay {
		// Shift overflow also lands here.
		backoff = p.MaxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(p.BaseDelay)))
	delay := backoff + jitter
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Clock abstracts time for deterministic tests against a simulated failing
// provider.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock is the production clock.
type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
