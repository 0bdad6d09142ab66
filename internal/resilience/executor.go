// Package resilience wraps every external API call with rate accounting,
// retry with exponential backoff, and response caching with single-flight
// request deduplication.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/logger"
)

// Call is one attempt at an external request.
type Call func(ctx context.Context) (any, error)

// Config configures an Executor.
type Config struct {
	// Policy bounds retries and backoff.
	Policy Policy

	// RatePerSecond is the dispatch throughput limit. Zero disables rate
	// accounting.
	RatePerSecond float64

	// Burst is the rate limiter burst size. Defaults to 1 when a rate is
	// set.
	Burst int

	// CallTimeout is the upper-bound wait for a single attempt. Exceeding
	// it is a transient failure that enters the retry policy.
	CallTimeout time.Duration

	// Clock is injectable for deterministic tests. Defaults to the real
	// clock.
	Clock Clock
}

// Stats counts the executor's external traffic.
type Stats struct {
	// RequestsMade is the number of attempts dispatched to providers.
	RequestsMade uint64

	// CacheHits is the number of calls served from the response cache.
	CacheHits uint64

	// RateLimitHits is the number of rate-limit responses observed.
	RateLimitHits uint64
}

// Executor runs external calls under one retry policy, one rate account,
// and one response cache. One executor serves one session; cached responses
// live for the session's lifetime.
type Executor struct {
	policy      Policy
	limiter     *rate.Limiter
	callTimeout time.Duration
	clock       Clock

	group singleflight.Group
	cache sync.Map // fingerprint -> any

	requestsMade  atomic.Uint64
	cacheHits     atomic.Uint64
	rateLimitHits atomic.Uint64
}

// NewExecutor creates an executor from cfg, applying defaults for
// zero-valued fields.
func NewExecutor(cfg Config) *Executor {
	e := &Executor{
		policy:      cfg.Policy.withDefaults(),
		callTimeout: cfg.CallTimeout,
		clock:       cfg.Clock,
	}
	if e.callTimeout == 0 {
		e.callTimeout = DefaultCallTimeout
	}
	if e.clock == nil {
		e.clock = realClock{}
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return e
}

// Do runs call under the full resilience stack. The key is the normalised
// request fingerprint (see domain.Fingerprint): identical concurrent
// requests share one in-flight call, and completed results are reused for
// later identical requests.
func (e *Executor) Do(ctx context.Context, key string, call Call) (any, error) {
	if cached, ok := e.cache.Load(key); ok {
		e.cacheHits.Add(1)
		logger.Debug("resilience: cache hit for %s", shortKey(key))
		return cached, nil
	}

	result, err, shared := e.group.Do(key, func() (any, error) {
		return e.doWithRetry(ctx, call)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		// A late caller attached to an in-flight identical request.
		e.cacheHits.Add(1)
	}

	e.cache.Store(key, result)
	return result, nil
}

// doWithRetry is the retry loop for a single logical request.
func (e *Executor) doWithRetry(ctx context.Context, call Call) (any, error) {
	var lastErr error

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.policy.Delay(attempt - 1)
			if rle, ok := IsRateLimit(lastErr); ok && rle.RetryAfter > delay {
				delay = rle.RetryAfter
			}
			logger.Debug("resilience: retry %d/%d in %s", attempt, e.policy.MaxAttempts-1, delay)
			if err := e.clock.Sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		// Rate accounting: delay dispatch rather than exceed the limit.
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		e.requestsMade.Add(1)

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		result, err := call(callCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if _, ok := IsRateLimit(err); ok {
			e.rateLimitHits.Add(1)
		}
		if !IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if _, ok := IsRateLimit(lastErr); ok {
		return nil, fmt.Errorf("%w after %d attempts: %w",
			domain.ErrRateLimited, e.policy.MaxAttempts, lastErr)
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", e.policy.MaxAttempts, lastErr)
}

// Forget drops any cached response for key. Useful when a caller knows the
// result is stale within the session.
func (e *Executor) Forget(key string) {
	e.cache.Delete(key)
	e.group.Forget(key)
}

// Stats returns a snapshot of the traffic counters.
func (e *Executor) Stats() Stats {
	return Stats{
		RequestsMade:  e.requestsMade.Load(),
		CacheHits:     e.cacheHits.Load(),
		RateLimitHits: e.rateLimitHits.Load(),
	}
}

// DoAs runs a typed call through e, sparing callers the assertion on the
// shared cache's untyped results.
func DoAs[T any](ctx context.Context, e *Executor, key string, call func(ctx context.Context) (T, error)) (T, error) {
	result, err := e.Do(ctx, key, func(ctx context.Context) (any, error) {
		return call(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cached result for %s has type %T", shortKey(key), result)
	}
	return typed, nil
}

// shortKey trims a fingerprint for log lines.
func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
