// Package ratelimit implements request pacing for the ISS API. The server
// applies per-IP throttling, so one Pacer per session enforces a minimum
// spacing between consecutive outbound attempts across all concurrent calls.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	issPacerWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iss_pacer_waits_total",
		Help: "Total number of requests that had to wait for pacing",
	})

	issPacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iss_pacer_wait_seconds",
		Help:    "Time spent waiting for the pacer before an outbound attempt",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// Pacer serializes the pacing of outbound attempts: consecutive grants are
// spaced at least the configured delay apart, measured from the previous
// grant. Waiters are served in approximate arrival order. Safe for
// concurrent use; all executors of a session share one instance.
type Pacer struct {
	limiter *rate.Limiter
	delay   time.Duration
	logger  zerolog.Logger
}

// NewPacer creates a pacer with the given minimum spacing between grants.
// A zero delay disables pacing: Wait returns immediately.
func NewPacer(delay time.Duration, logger zerolog.Logger) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		delay:   delay,
		logger:  logger,
	}
}

// Wait blocks until the caller is allowed to issue the next outbound attempt,
// or until ctx is cancelled. The cancellation error is returned unwrapped so
// the caller's classifier sees context.Canceled / DeadlineExceeded.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}

	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		// rate.Limiter wraps the context error in its own message; surface
		// the raw context error for classification.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	waited := time.Since(start)
	if waited > time.Millisecond {
		issPacerWaitsTotal.Inc()
		issPacerWaitSeconds.Observe(waited.Seconds())
		p.logger.Debug().
			Dur("waited", waited).
			Dur("delay", p.delay).
			Msg("Paced outbound request")
	}

	return nil
}

// Delay returns the configured minimum spacing between grants.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}
