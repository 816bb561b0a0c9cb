// Package metrics exposes the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "garagemint",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garagemint",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "garagemint",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	draws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garagemint",
			Subsystem: "gacha",
			Name:      "draws_total",
			Help:      "Total number of box draws by outcome.",
		},
		[]string{"box", "rarity", "status"},
	)

	mintFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "garagemint",
			Subsystem: "gacha",
			Name:      "mint_failures_total",
			Help:      "Total number of failed on-chain mints.",
		},
	)

	settlementInconsistencies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "garagemint",
			Subsystem: "gacha",
			Name:      "settlement_inconsistencies_total",
			Help:      "Mints confirmed on chain whose local settlement failed.",
		},
	)

	settlementRetryQueue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "garagemint",
			Subsystem: "gacha",
			Name:      "settlement_retry_queue",
			Help:      "Settlements currently waiting for retry.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		draws,
		mintFailures,
		settlementInconsistencies,
		settlementRetryQueue,
	)
}

// Handler returns the /metrics HTTP handler for the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncrementInFlight increments the in-flight request gauge.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight decrements the in-flight request gauge.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDraw records a completed draw attempt.
func RecordDraw(box, rarity, status string) {
	draws.WithLabelValues(box, rarity, status).Inc()
}

// RecordMintFailure counts a failed mint.
func RecordMintFailure() { mintFailures.Inc() }

// RecordSettlementInconsistency counts a settlement that failed after a
// confirmed mint.
func RecordSettlementInconsistency() { settlementInconsistencies.Inc() }

// SetSettlementRetryQueue reports the current retry queue depth.
func SetSettlementRetryQueue(n int) { settlementRetryQueue.Set(float64(n)) }
