// Package metrics provides the centralized Prometheus metrics registry for
// the GitHub client. All metrics are defined in their respective packages
// (github, cache, fanout) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/github):
//   - github_api_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - github_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//
// Retry Metrics (pkg/github):
//   - github_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - github_api_quota_wait_seconds (Histogram): Time spent waiting for quota resets
//   - github_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - github_cache_hits_total (Counter): REST response cache hits
//   - github_cache_misses_total (Counter): REST response cache misses
//   - github_304_responses_total (Counter): 304 Not Modified responses served from cache
//   - github_cache_errors_total{operation} (Counter): Cache operation errors
//
// Fan-Out Metrics (pkg/fanout):
//   - fanout_tasks_total{pool, outcome} (Counter): Per-item tasks by outcome (ok, error)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(github_cache_hits_total[5m])) /
//   (sum(rate(github_cache_hits_total[5m])) + sum(rate(github_cache_misses_total[5m])))
//
//   # Quota Wait Time
//   rate(github_api_quota_wait_seconds_sum[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(github_api_request_duration_seconds_bucket[5m]))
//
//   # Retry Exhaustion Rate
//   rate(github_api_retry_exhausted_total[5m])
