package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RemoteCalls counts calls to the data service by table, operation and result.
	RemoteCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_remote_calls_total",
			Help: "Total number of calls made to the data service",
		},
		[]string{"table", "op", "result"},
	)

	// Refetches counts full collection reloads per store and trigger.
	Refetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_store_refetch_total",
			Help: "Total number of full collection fetches",
		},
		[]string{"store", "reason"},
	)

	// StaleFetches counts fetch results dropped because something newer already landed.
	StaleFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_store_stale_fetch_total",
			Help: "Fetch results discarded by the generation guard",
		},
		[]string{"store"},
	)

	// Rollbacks counts optimistic patches reverted after a failed write.
	Rollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_store_rollback_total",
			Help: "Optimistic updates rolled back",
		},
		[]string{"store"},
	)
)

// Result turns an error into a metric label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
