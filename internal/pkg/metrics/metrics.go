// Package metrics holds the Prometheus collectors shared by the workflow core.
// Collectors register with the default registry, which /metrics serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition results.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// SLA sweep outcomes.
const (
	OutcomeChecked  = "checked"
	OutcomeWarned   = "warned"
	OutcomeBreached = "breached"
	OutcomeSkipped  = "skipped"
)

var (
	ItemTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_item_transitions_total",
			Help: "Item transitions attempted, by kind, target state and result",
		},
		[]string{"kind", "to", "result"},
	)

	SideEffects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_side_effects_total",
			Help: "Post-commit side effects executed, by type and success",
		},
		[]string{"type", "success"},
	)

	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_workflow_runs_total",
			Help: "Workflow runs finished, by final status",
		},
		[]string{"status"},
	)

	WorkflowPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradeflow_workflow_phase_duration_seconds",
			Help:    "Workflow phase duration distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	SLASweepItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeflow_sla_sweep_items_total",
			Help: "Items seen by the SLA sweep, by outcome",
		},
		[]string{"outcome"},
	)
)
