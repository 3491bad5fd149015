// Package metrics exposes Prometheus collectors for the HTTP layer and the
// catalog. Everything is registered with the default registry on init and
// served by promhttp on /metrics.
package metrics

import (
	"github.com/giygas/druginteractions-api/entities"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Number of rate limiter buckets (clients seen in the last ~5 minutes)",
		},
	)

	CatalogDrugsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_drugs_total",
			Help: "Number of drugs in the catalog",
		},
	)

	CatalogInteractions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_interactions",
			Help: "Number of recorded interactions by severity",
		},
		[]string{"severity"},
	)

	StatsRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stats_refresh_duration_seconds",
			Help:    "Time spent recomputing the catalog summary",
			Buckets: prometheus.DefBuckets,
		},
	)

	StatsRefreshErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_refresh_errors_total",
			Help: "Failed catalog summary refreshes",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		RateLimiterBucketsTotal,
		CatalogDrugsTotal,
		CatalogInteractions,
		StatsRefreshDuration,
		StatsRefreshErrors,
	)
}

// RecordCatalog publishes a catalog summary. Every severity gets a sample so
// a bucket that drops to zero is reported as zero.
func RecordCatalog(stats entities.Stats) {
	CatalogDrugsTotal.Set(float64(stats.TotalDrugs))

	counts := make(map[entities.Severity]int, len(stats.SeverityBreakdown))
	for _, entry := range stats.SeverityBreakdown {
		counts[entry.Severity] = entry.Count
	}
	for _, sev := range entities.Severities() {
		CatalogInteractions.WithLabelValues(string(sev)).Set(float64(counts[sev]))
	}
}
