package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks page responses served from Redis
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fda_cache_hits_total",
			Help: "Total number of openFDA page cache hits",
		},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fda_cache_misses_total",
			Help: "Total number of openFDA page cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fda_cache_size_bytes",
			Help: "Bytes written to the openFDA page cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fda_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
