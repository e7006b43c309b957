// File: internal/infra/metrics/verify.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	verifyOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_outcomes_total",
			Help: "Count of verification attempts per outcome.",
		},
		[]string{"outcome"},
	)

	verifyLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verify_latency_ms",
			Help:    "Verification request latency distribution in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 200, 400, 800},
		},
		[]string{"outcome"},
	)
)

func init() {
	register(verifyOutcomes, verifyLatencyMs)
}

// ObserveVerification records one completed verification attempt.
func ObserveVerification(outcome string, latencyMs float64) {
	verifyOutcomes.WithLabelValues(outcome).Inc()
	verifyLatencyMs.WithLabelValues(outcome).Observe(latencyMs)
}
