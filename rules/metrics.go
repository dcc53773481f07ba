package rules

import "github.com/prometheus/client_golang/prometheus"

var (
	tickOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autosnake",
			Subsystem: "rules",
			Name:      "tick_outcomes_total",
			Help:      "Ticks processed by outcome.",
		},
		[]string{"mode", "outcome"},
	)
	pathResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autosnake",
			Subsystem: "rules",
			Name:      "pathfinder_results_total",
			Help:      "Pathfinder invocations by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(tickOutcomes, pathResults)
}
