// Package metrics documents the Prometheus metrics exposed by the
// openFDA client. All metrics are defined in their respective packages
// (client, cache, ratelimit, pagination) to maintain modularity and
// avoid circular dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - fda_rate_limit_acquires_total (Counter): Request slots granted
//   - fda_rate_limit_waits_total{window} (Counter): Waits by full window (minute, day)
//   - fda_rate_limit_wait_seconds (Histogram): Time callers spent blocked
//
// Pagination Metrics (pkg/pagination):
//   - fda_pagination_pages_total{mode} (Counter): Pages fetched by mode (offset, cursor)
//   - fda_pagination_mode_switches_total (Counter): Offset-to-cursor switches
//
// Cache Metrics (pkg/cache):
//   - fda_cache_hits_total (Counter): Pages served from Redis
//   - fda_cache_misses_total (Counter): Cache misses
//   - fda_cache_size_bytes (Gauge): Bytes written to the cache
//   - fda_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - fda_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - fda_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - fda_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(fda_cache_hits_total[5m])) /
//   (sum(rate(fda_cache_hits_total[5m])) + sum(rate(fda_cache_misses_total[5m])))
//
//   # Time spent waiting on quotas
//   histogram_quantile(0.95, rate(fda_rate_limit_wait_seconds_bucket[5m]))
//
//   # Request Error Rate
//   rate(fda_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(fda_request_duration_seconds_bucket[5m]))
