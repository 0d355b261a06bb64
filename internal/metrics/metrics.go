// Package metrics holds the Prometheus collectors of the dashboard.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sales_dashboard"

// Cache lookup results
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultBypass = "bypass"
)

// Upstream call outcomes
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// Registry is the registry served on /metrics
var Registry = prometheus.NewRegistry()

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Count of cache lookups by cache and result (hit, miss, bypass).",
		},
		[]string{"cache", "result"},
	)
	upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Count of order source calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Order source call latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
	pagesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "pages_total",
			Help:      "Count of listing pages fetched.",
		},
	)
	duplicatesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duplicates_total",
			Help:      "Count of records dropped as duplicates across pages.",
		},
	)
	partialFetches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "partial_total",
			Help:      "Count of paginations truncated by an upstream error.",
		},
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(cacheLookups)
		Registry.MustRegister(upstreamCalls)
		Registry.MustRegister(upstreamLatency)
		Registry.MustRegister(pagesFetched)
		Registry.MustRegister(duplicatesDropped)
		Registry.MustRegister(partialFetches)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCacheLookup records one cache lookup
func RecordCacheLookup(cache, result string) {
	cacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordUpstreamCall records one order source call and its latency
func RecordUpstreamCall(operation, outcome string, seconds float64) {
	upstreamCalls.WithLabelValues(operation, outcome).Inc()
	upstreamLatency.WithLabelValues(operation).Observe(seconds)
}

// RecordPages records listing pages fetched by one pagination
func RecordPages(n int) {
	pagesFetched.Add(float64(n))
}

// RecordDuplicates records records dropped by dedup
func RecordDuplicates(n int) {
	duplicatesDropped.Add(float64(n))
}

// RecordPartialFetch records a pagination truncated by an error
func RecordPartialFetch() {
	partialFetches.Inc()
}
