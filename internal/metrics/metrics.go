// Package metrics registers the small set of prometheus gauges/counters
// exposed at GET /metrics (SPEC_FULL.md §4.21).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TickTotal counts every tick the simulator has advanced.
	TickTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpusim_tick_total",
		Help: "Total number of simulation ticks advanced.",
	})

	// ActiveFailures reports the current size of the failure engine's active set.
	ActiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpusim_active_failures",
		Help: "Number of currently active failures.",
	})

	// PowerTotalKW reports the facility's total (IT + overhead) power draw.
	PowerTotalKW = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpusim_power_total_kw",
		Help: "Total facility power draw in kW, including cooling overhead.",
	})

	// CompositeScore reports the most recently computed evaluation's composite score.
	CompositeScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpusim_composite_score",
		Help: "Composite score (0-100) of the most recently completed evaluation run.",
	})
)
