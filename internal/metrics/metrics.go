// Package metrics exposes Prometheus instrumentation for quota fetches
// and selection runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	QuotaFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "capacity_planner",
			Subsystem: "quota",
			Name:      "fetch_total",
			Help:      "Total number of quota fetches by region and result",
		},
		[]string{"region", "result"},
	)

	SelectionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "capacity_planner",
			Subsystem: "selector",
			Name:      "runs_total",
			Help:      "Total number of selection runs",
		},
	)

	SelectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "capacity_planner",
			Subsystem: "selector",
			Name:      "run_duration_seconds",
			Help:      "Duration of selection runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
	)

	FeasibleRegions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "capacity_planner",
			Subsystem: "selector",
			Name:      "feasible_regions",
			Help:      "Number of feasible regions in the most recent report",
		},
	)
)

func init() {
	prometheus.MustRegister(
		QuotaFetchTotal,
		SelectionTotal,
		SelectionDuration,
		FeasibleRegions,
	)
}
