package pricefeed

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tidelend",
		Subsystem: "pricefeed",
		Name:      "cache_hits_total",
		Help:      "Price cache lookups served from a fresh cached quote.",
	}, []string{"feed_id"})

	cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tidelend",
		Subsystem: "pricefeed",
		Name:      "cache_misses_total",
		Help:      "Price cache lookups that went to the upstream source.",
	}, []string{"feed_id"})

	fetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tidelend",
		Subsystem: "pricefeed",
		Name:      "fetch_errors_total",
		Help:      "Upstream fetches that produced no usable quote.",
	}, []string{"feed_id"})

	staleServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tidelend",
		Subsystem: "pricefeed",
		Name:      "stale_served_total",
		Help:      "Quotes handed out past their publish-time staleness bound.",
	}, []string{"feed_id"})

	fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tidelend",
		Subsystem: "pricefeed",
		Name:      "fetch_duration_seconds",
		Help:      "Latency of upstream price fetches.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
)

// registerMetrics registers the pricefeed collectors with the default
// registry. Safe to call from every cache constructor.
func registerMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(
			cacheHits,
			cacheMisses,
			fetchErrors,
			staleServed,
			fetchDuration,
		)
	})
}
