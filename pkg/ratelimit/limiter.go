package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit enforcement.
var (
	fdaAcquiresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fda_rate_limit_acquires_total",
		Help: "Total request slots granted by the rate limiter",
	})

	fdaWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fda_rate_limit_waits_total",
		Help: "Total times a caller had to wait for a slot, by window",
	}, []string{"window"})

	fdaWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fda_rate_limit_wait_seconds",
		Help:    "Time callers spent blocked waiting for a request slot",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
	})
)

// Default quotas for api.fda.gov.
const (
	// DefaultPerMinute applies with or without an API key.
	DefaultPerMinute = 240

	// DefaultPerDay is a conservative daily cap for anonymous use.
	DefaultPerDay = 1000

	// DefaultPerDayWithKey is the published daily quota for keyed use.
	DefaultPerDayWithKey = 120000
)

// Config holds the limiter quotas. A value <= 0 uncaps that window.
type Config struct {
	// PerMinute is the request cap for the rolling 60-second window.
	PerMinute int

	// PerDay is the request cap for the rolling 24-hour window.
	PerDay int
}

// DefaultConfig returns the openFDA quotas. The daily quota depends on
// whether an API key will be sent with requests.
func DefaultConfig(hasAPIKey bool) Config {
	cfg := Config{
		PerMinute: DefaultPerMinute,
		PerDay:    DefaultPerDay,
	}
	if hasAPIKey {
		cfg.PerDay = DefaultPerDayWithKey
	}
	return cfg
}

// Limiter gates outbound requests against both quota windows. One
// instance is owned by one client session; share it between goroutines
// freely, Acquire is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	minute *Window
	day    *Window
	logger zerolog.Logger
}

// New creates a limiter with the given quotas.
func New(cfg Config, logger zerolog.Logger) *Limiter {
	return newLimiter(cfg, time.Minute, 24*time.Hour, logger)
}

// newLimiter allows tests to shrink the window durations.
func newLimiter(cfg Config, minuteDur, dayDur time.Duration, logger zerolog.Logger) *Limiter {
	return &Limiter{
		minute: NewWindow(cfg.PerMinute, minuteDur),
		day:    NewWindow(cfg.PerDay, dayDur),
		logger: logger,
	}
}

// Acquire blocks until a request slot is free in BOTH windows, records
// the request timestamp in both, and returns. The check of both windows
// and the timestamp insertion happen under one lock hold, so two
// concurrent callers can never both claim the last slot.
//
// Acquire never fails on its own; the only error path is cancellation of
// ctx while waiting. Callers needing bounded latency must pass a context
// with a deadline. Timestamps recorded for already-completed requests are
// kept on cancellation; there is no rollback.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()

	for {
		l.mu.Lock()
		now := time.Now()
		l.minute.Prune(now)
		l.day.Prune(now)

		if l.minute.HasCapacity() && l.day.HasCapacity() {
			l.minute.Record(now)
			l.day.Record(now)
			l.mu.Unlock()

			fdaAcquiresTotal.Inc()
			if waited := time.Since(start); waited > time.Millisecond {
				fdaWaitSeconds.Observe(waited.Seconds())
			}
			return nil
		}

		// Wait until the most constrained full window frees a slot, then
		// recompute: prunes during the sleep may shorten later waits.
		var wait time.Duration
		if !l.minute.HasCapacity() {
			fdaWaitsTotal.WithLabelValues("minute").Inc()
			if d := l.minute.FreeAt(now).Sub(now); d > wait {
				wait = d
			}
		}
		if !l.day.HasCapacity() {
			fdaWaitsTotal.WithLabelValues("day").Inc()
			if d := l.day.FreeAt(now).Sub(now); d > wait {
				wait = d
			}
		}
		l.mu.Unlock()

		l.logger.Debug().
			Dur("wait", wait).
			Msg("Rate limit reached, waiting for free slot")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InFlight returns the number of timestamps currently inside each window.
// Intended for tests and diagnostics.
func (l *Limiter) InFlight() (minute, day int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.minute.Prune(now)
	l.day.Prune(now)
	return l.minute.Len(), l.day.Len()
}
