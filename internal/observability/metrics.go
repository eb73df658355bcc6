// Package observability exposes Prometheus collectors for the run tracker.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsRecordedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "runs",
		Name:      "recorded_total",
		Help:      "Number of runs appended to the run store, labeled by workout type.",
	}, []string{"workout_type"})

	runPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runtracker",
		Subsystem: "runs",
		Name:      "last_run_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent run appended to the store.",
	})

	weeklyGoalGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runtracker",
		Subsystem: "goal",
		Name:      "weekly_km",
		Help:      "Current weekly distance goal in kilometres.",
	})

	workflowStepCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "workflow",
		Name:      "step_inputs_total",
		Help:      "Entry workflow inputs grouped by step and outcome (accepted, rejected).",
	}, []string{"step", "outcome"})

	workflowCancelledCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "workflow",
		Name:      "cancelled_total",
		Help:      "Number of entry workflows aborted by the user.",
	})

	actionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "bot",
		Name:      "actions_total",
		Help:      "Inbound user actions routed by the dispatcher.",
	}, []string{"action"})

	exportCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "bot",
		Name:      "exports_total",
		Help:      "CSV export attempts grouped by outcome (delivered, empty, failed).",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(runsRecordedCounter, runPersistGauge, weeklyGoalGauge,
		workflowStepCounter, workflowCancelledCounter, actionCounter, exportCounter)
}

// RecordRunPersisted counts a stored run and moves the persistence watermark.
func RecordRunPersisted(workoutType string, ts time.Time) {
	runsRecordedCounter.WithLabelValues(workoutType).Inc()
	if ts.IsZero() {
		return
	}
	runPersistGauge.Set(float64(ts.Unix()))
}

// RecordWeeklyGoal publishes the current weekly goal.
func RecordWeeklyGoal(km float64) {
	weeklyGoalGauge.Set(km)
}

// RecordWorkflowStep counts one workflow input for the named step.
func RecordWorkflowStep(step string, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	workflowStepCounter.WithLabelValues(step, outcome).Inc()
}

// RecordWorkflowCancelled counts an aborted workflow.
func RecordWorkflowCancelled() {
	workflowCancelledCounter.Inc()
}

// RecordAction counts a dispatched action.
func RecordAction(action string) {
	actionCounter.WithLabelValues(action).Inc()
}

// RecordExport counts an export attempt.
func RecordExport(outcome string) {
	exportCounter.WithLabelValues(outcome).Inc()
}

// RegisterConversationGauge exposes the number of tracked conversations. It
// must be called at most once per process.
func RegisterConversationGauge(active func() int) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "runtracker",
		Subsystem: "workflow",
		Name:      "conversations",
		Help:      "Conversations currently held in the session registry.",
	}, func() float64 { return float64(active()) }))
}
