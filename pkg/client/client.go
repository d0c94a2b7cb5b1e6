// Package client provides the core ISS HTTP client: a session owning one
// pooled transport, with request pacing, retry with backoff, response
// caching, and error classification around every outbound attempt.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finwerk/moexiss/pkg/cache"
	"github.com/finwerk/moexiss/pkg/ratelimit"
	"github.com/finwerk/moexiss/pkg/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for ISS client operations.
var (
	issRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iss_requests_total",
		Help: "Total ISS requests by endpoint and status",
	}, []string{"endpoint", "status"})

	issRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iss_request_duration_seconds",
		Help:    "ISS logical request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	issErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iss_errors_total",
		Help: "Total classified attempt failures by error kind",
	}, []string{"kind"})

	issRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iss_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	issRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iss_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})

	issRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iss_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// DefaultBaseURL is the public ISS host.
const DefaultBaseURL = "https://iss.moex.com"

// maxErrorBodyBytes limits how much of a failed response body is carried in
// the terminal error for diagnostics.
const maxErrorBodyBytes = 512

// Config holds the client configuration. The value is immutable after New:
// every component reads it by shared reference and nothing mutates it.
type Config struct {
	// BaseURL of the ISS host.
	BaseURL string

	// UserAgent identifies the client to the exchange (sent on every request).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout bounds each individual network attempt.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries int

	// RateLimitDelay is the minimum spacing between consecutive outbound
	// attempts across the whole session. Zero disables pacing.
	RateLimitDelay time.Duration

	// Retry backoff tuning.
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// Redis enables the response cache when set.
	Redis *redis.Client

	// TaxonomyTTL is the cache lifetime for engine/market/board listings.
	TaxonomyTTL time.Duration

	// CandlesTTL is the cache lifetime for historical candle pages.
	CandlesTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		UserAgent:         userAgent,
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RateLimitDelay:    200 * time.Millisecond,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		TaxonomyTTL:       12 * time.Hour,
		CandlesTTL:        5 * time.Minute,
	}
}

// Client is the ISS session: it owns the pooled transport shared by all
// logical calls and the single pacer that serializes their outbound pacing.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	pacer      *ratelimit.Pacer
	cache      *cache.Manager
	retry      RetryPolicy
	config     Config
	logger     zerolog.Logger

	// Session scope: Close cancels sessionCtx, aborting in-flight requests
	// and pending waits.
	sessionCtx context.Context
	cancel     context.CancelFunc
}

// New validates cfg and creates a new ISS client. Validation failures are
// terminal configuration errors; nothing is retried or deferred.
func New(cfg Config) (*Client, error) {
	if err := validate(cfg); err != nil {
		return nil, &APIError{Kind: KindConfiguration, Err: err}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := log.With().Str("component", "iss-client").Logger()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	sessionCtx, cancel := context.WithCancel(context.Background())

	return &Client{
		httpClient: &http.Client{Transport: transport},
		transport:  transport,
		pacer:      ratelimit.NewPacer(cfg.RateLimitDelay, logger),
		cache:      cacheManager,
		retry: RetryPolicy{
			MaxRetries:        cfg.MaxRetries,
			InitialBackoff:    cfg.InitialBackoff,
			MaxBackoff:        cfg.MaxBackoff,
			BackoffMultiplier: cfg.BackoffMultiplier,
			Jitter:            true,
		},
		config:     cfg,
		logger:     logger,
		sessionCtx: sessionCtx,
		cancel:     cancel,
	}, nil
}

func validate(cfg Config) error {
	if cfg.UserAgent == "" {
		return fmt.Errorf("%w: user-agent is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0 (got %v)", ErrInvalidConfig, cfg.Timeout)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be >= 0 (got %d)", ErrInvalidConfig, cfg.MaxRetries)
	}
	if cfg.RateLimitDelay < 0 {
		return fmt.Errorf("%w: rate_limit_delay must be >= 0 (got %v)", ErrInvalidConfig, cfg.RateLimitDelay)
	}
	if cfg.BackoffMultiplier != 0 && cfg.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoff_multiplier must be >= 1 (got %v)", ErrInvalidConfig, cfg.BackoffMultiplier)
	}
	return nil
}

// Get performs one logical GET against an ISS endpoint and returns the
// decoded document. The endpoint is a path like "/iss/engines.json"; params
// are appended URL-encoded. Pacing, retries, caching, and classification all
// happen inside; the caller sees either a document or one terminal APIError.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*table.Document, error) {
	start := time.Now()

	body, err := c.GetRaw(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	doc, err := table.Parse(body)
	if err != nil {
		issErrorsTotal.WithLabelValues(string(KindMalformedResponse)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Err(err).
			Msg("Response body failed structural parsing")
		return nil, &APIError{
			Kind:     KindMalformedResponse,
			Endpoint: endpoint,
			Attempts: 1,
			Elapsed:  time.Since(start),
			Err:      err,
		}
	}

	return doc, nil
}

// GetRaw performs one logical GET and returns the raw response body,
// consulting and populating the cache for cacheable endpoint classes.
func (c *Client) GetRaw(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	start := time.Now()
	defer func() {
		issRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	ttl := c.ttlFor(endpoint)
	key := cache.Key{Endpoint: endpoint, Params: params}

	if c.cache != nil && ttl > 0 {
		if entry, err := c.cache.Get(ctx, key); err == nil {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Msg("Serving response from cache")
			return entry.Data, nil
		} else if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	body, err := c.execute(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && ttl > 0 {
		if err := c.cache.Set(ctx, key, cache.NewEntry(body, ttl)); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
		}
	}

	return body, nil
}

// execute runs the attempt loop for one logical request: pace, issue the
// call with the per-attempt timeout, classify, and consult the retry policy
// between attempts. Returns the raw body of the first successful response.
func (c *Client) execute(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	// Tie the call to the session scope: closing the session aborts
	// in-flight requests and pending waits.
	ctx, cancelCall := context.WithCancel(ctx)
	defer cancelCall()
	stop := context.AfterFunc(c.sessionCtx, cancelCall)
	defer stop()

	requestURL := c.config.BaseURL + endpoint
	if encoded := params.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	start := time.Now()

	for attempt := 1; ; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			outcome := Classify(nil, err)
			return nil, c.terminal(endpoint, outcome, nil, 0, attempt-1, start)
		}

		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Msg("Attempt started")

		body, status, outcome := c.attempt(ctx, requestURL)

		if outcome.Kind == "" {
			issRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", status)).Inc()
			if attempt > 1 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return body, nil
		}

		issErrorsTotal.WithLabelValues(string(outcome.Kind)).Inc()
		if status != 0 {
			issRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", status)).Inc()
		} else {
			issRequestsTotal.WithLabelValues(endpoint, string(outcome.Kind)).Inc()
		}

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Int("status", status).
			Str("error_kind", string(outcome.Kind)).
			Msg("Attempt failed")

		wait, retry := c.retry.Decide(attempt, outcome)
		if !retry {
			if outcome.Kind.Transient() {
				issRetryExhaustedTotal.WithLabelValues(string(outcome.Kind)).Inc()
			}
			return nil, c.terminal(endpoint, outcome, body, status, attempt, start)
		}

		issRetriesTotal.WithLabelValues(string(outcome.Kind)).Inc()
		issRetryBackoffSeconds.WithLabelValues(string(outcome.Kind)).Observe(wait.Seconds())

		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Str("error_kind", string(outcome.Kind)).
			Msg("Retry scheduled")

		select {
		case <-ctx.Done():
			outcome := Classify(nil, ctx.Err())
			return nil, c.terminal(endpoint, outcome, nil, 0, attempt, start)
		case <-time.After(wait):
		}
	}
}

// attempt issues one network call bounded by the configured timeout and
// classifies its outcome. An empty outcome kind means transport-level
// success with body in hand.
func (c *Client) attempt(ctx context.Context, requestURL string) ([]byte, int, Outcome) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, Classify(nil, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// If the caller (not the attempt deadline) cancelled, classify from
		// the parent context so the failure surfaces as cancellation.
		if ctx.Err() != nil {
			return nil, 0, Classify(nil, ctx.Err())
		}
		return nil, 0, Classify(nil, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	outcome := Classify(resp, nil)
	if outcome.Kind != "" {
		return body, resp.StatusCode, outcome
	}
	if readErr != nil {
		if ctx.Err() != nil {
			return nil, resp.StatusCode, Classify(nil, ctx.Err())
		}
		return nil, resp.StatusCode, Classify(nil, readErr)
	}

	return body, resp.StatusCode, Outcome{}
}

// terminal builds the single failure surfaced to the caller and emits the
// call-failed event.
func (c *Client) terminal(endpoint string, outcome Outcome, body []byte, status, attempts int, start time.Time) error {
	elapsed := time.Since(start)

	snippet := string(body)
	if len(snippet) > maxErrorBodyBytes {
		snippet = snippet[:maxErrorBodyBytes]
	}

	apiErr := &APIError{
		Kind:       outcome.Kind,
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       snippet,
		RetryAfter: outcome.RetryAfter,
		Attempts:   attempts,
		Elapsed:    elapsed,
	}
	if outcome.Kind.Transient() && attempts > c.retry.MaxRetries {
		apiErr.Err = ErrRetryExhausted
	}

	c.logger.Error().
		Str("endpoint", endpoint).
		Str("error_kind", string(outcome.Kind)).
		Int("attempts", attempts).
		Dur("elapsed", elapsed).
		Msg("Request failed")

	return apiErr
}

// ttlFor returns the cache lifetime for an endpoint class. Real-time quotes
// and security search are never cached.
func (c *Client) ttlFor(endpoint string) time.Duration {
	switch {
	case strings.Contains(endpoint, "/candles"):
		return c.config.CandlesTTL
	case endpoint == "/iss/engines.json",
		strings.HasSuffix(endpoint, "/markets.json"),
		strings.HasSuffix(endpoint, "/boards.json"):
		return c.config.TaxonomyTTL
	default:
		return 0
	}
}

// Config returns the immutable session configuration.
func (c *Client) Config() Config {
	return c.config
}

// Close releases the session: in-flight requests and pending waits are
// cancelled, and pooled connections are closed. The client must not be used
// afterwards.
func (c *Client) Close() error {
	c.cancel()
	c.transport.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
