// Package metrics documents the Prometheus metrics exposed by the ISS
// client. All metrics are defined in their owning packages (client,
// ratelimit, cache, pagination) to maintain modularity and avoid circular
// dependencies; they register themselves via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the ISS client.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - iss_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - iss_request_duration_seconds{endpoint} (Histogram): Logical request duration
//   - iss_errors_total{kind} (Counter): Classified attempt failures by kind
//
// Retry Metrics (pkg/client):
//   - iss_retries_total{kind} (Counter): Retry attempts by error kind
//   - iss_retry_backoff_seconds{kind} (Histogram): Backoff duration by error kind
//   - iss_retry_exhausted_total{kind} (Counter): Requests that exhausted max retries
//
// Pacing Metrics (pkg/ratelimit):
//   - iss_pacer_waits_total (Counter): Requests that had to wait for pacing
//   - iss_pacer_wait_seconds (Histogram): Time spent waiting for the pacer
//
// Cache Metrics (pkg/cache):
//   - iss_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - iss_cache_misses_total (Counter): Cache misses
//   - iss_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pagination Metrics (pkg/pagination):
//   - iss_pages_fetched_total{endpoint} (Counter): Pages fetched by endpoint
//   - iss_pagination_guard_trips_total (Counter): Runs aborted by the max-row guard
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(iss_errors_total[5m])
//
//   # Cache Hit Rate
//   sum(rate(iss_cache_hits_total[5m])) /
//   (sum(rate(iss_cache_hits_total[5m])) + sum(rate(iss_cache_misses_total[5m])))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(iss_request_duration_seconds_bucket[5m]))
//
//   # Retry Pressure
//   rate(iss_retries_total[5m])
