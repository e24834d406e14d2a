// Package nwmetrics exposes night-watch's Prometheus instrumentation,
// grounded on the promauto global-variable idiom used across the
// example pack's metrics packages, served at /metrics by the Control
// API.
package nwmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "night_watch_task_runs_total",
		Help: "Total number of task evaluation ticks performed",
	}, []string{"task"})

	TaskState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "night_watch_task_state",
		Help: "Current task state (0=normal, 1=retrying, 2=failed)",
	}, []string{"task"})

	TaskRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "night_watch_task_run_duration_seconds",
		Help:    "Duration of a single task evaluation tick",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "night_watch_provider_errors_total",
		Help: "Total number of provider errors encountered while evaluating tasks",
	}, []string{"task", "provider"})

	ActionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "night_watch_action_runs_total",
		Help: "Total number of actions executed",
	}, []string{"task", "action", "outcome"})

	SchedulerTicksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "night_watch_scheduler_ticks_skipped_total",
		Help: "Total number of scheduled ticks skipped because the previous run was still in flight",
	}, []string{"task"})
)

// StateValue maps a task's state string to the gauge value used by
// TaskState.
func StateValue(state string) float64 {
	switch state {
	case "RETRYING":
		return 1
	case "FAILED":
		return 2
	default:
		return 0
	}
}

// Handler returns the HTTP handler serving the Prometheus exposition
// format, mounted at /metrics by the Control API.
func Handler() http.Handler {
	return promhttp.Handler()
}
