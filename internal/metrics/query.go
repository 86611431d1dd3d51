package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Query phases.
const (
	PhaseCompile = "compile"
	PhaseSelect  = "select"
	PhaseCount   = "count"
)

// Query Prometheus metrics.
var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pebble",
			Name:      "query_phase_duration_seconds",
			Help:      "Duration of search query phases in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"entity", "phase"},
	)

	QueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pebble",
			Name:      "query_errors_total",
			Help:      "Total search query failures",
		},
		[]string{"entity", "phase"},
	)

	QueryResultItems = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pebble",
			Name:      "query_result_items",
			Help:      "Rows returned per search query",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"entity"},
	)
)

var registerOnce sync.Once

// Register registers query and HTTP metrics with the default registry.
// Must be called from main; safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(QueryDuration)
		prometheus.MustRegister(QueryErrorsTotal)
		prometheus.MustRegister(QueryResultItems)
		prometheus.MustRegister(httpRequestDuration)
		prometheus.MustRegister(httpRequestsTotal)
		prometheus.MustRegister(httpRequestsInFlight)
	})
}
