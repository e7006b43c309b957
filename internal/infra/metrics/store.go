// File: internal/infra/metrics/store.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Count of storage-layer failures per backend and operation.",
		},
		[]string{"backend", "op"},
	)

	poolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "code_pool_size",
			Help: "Number of codes currently eligible for first activation.",
		},
	)
)

func init() {
	register(storeErrors, poolSize)
}

// IncStoreError counts one failed store operation.
func IncStoreError(backend, op string) {
	storeErrors.WithLabelValues(backend, op).Inc()
}

// SetPoolSize publishes the current pool size.
func SetPoolSize(n int) {
	poolSize.Set(float64(n))
}
