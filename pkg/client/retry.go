package client

import (
	"math/rand"
	"time"
)

// RetryPolicy decides, given a failed attempt and its classification, whether
// the request is retried and how long to wait first. The policy is a pure
// schedule: it never touches the network, so budget and backoff are testable
// in isolation from the executor.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first one.
	// Total attempts never exceed MaxRetries + 1.
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential growth factor per attempt.
	BackoffMultiplier float64

	// Jitter enables +/-20% randomization of computed backoffs to avoid
	// synchronized retry bursts. Disabled in tests for determinism.
	Jitter bool
}

// DefaultRetryPolicy returns the default retry schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Decide returns the wait before the next attempt and true when the request
// should be retried, or false when the classified failure is terminal.
//
// attempt is the 1-based index of the attempt that just failed. Terminal
// kinds (client errors, malformed responses, cancellation) stop immediately;
// transient kinds stop once the budget is spent. A server-provided
// Retry-After on a rate-limited response takes precedence over the computed
// backoff.
func (p RetryPolicy) Decide(attempt int, outcome Outcome) (time.Duration, bool) {
	if !outcome.Kind.Transient() {
		return 0, false
	}

	if attempt > p.MaxRetries {
		return 0, false
	}

	if outcome.Kind == KindRateLimited && outcome.RetryAfter > 0 {
		return outcome.RetryAfter, true
	}

	return p.backoff(attempt), true
}

// backoff computes InitialBackoff * BackoffMultiplier^(attempt-1), capped at
// MaxBackoff, with optional jitter.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	wait := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		wait *= p.BackoffMultiplier
		if wait >= float64(p.MaxBackoff) {
			break
		}
	}
	if wait > float64(p.MaxBackoff) {
		wait = float64(p.MaxBackoff)
	}

	if p.Jitter {
		wait *= 0.8 + rand.Float64()*0.4
	}

	return time.Duration(wait)
}
