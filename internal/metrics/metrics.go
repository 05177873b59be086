// Package metrics implements the daemon's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkqueueDepth tracks the number of tasks waiting in the FIFO queue.
	WorkqueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nakd_workqueue_depth",
			Help: "Number of tasks currently queued",
		},
	)

	// WorkqueueInFlight tracks tasks currently executing on a worker.
	WorkqueueInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nakd_workqueue_in_flight",
			Help: "Number of tasks currently executing",
		},
	)

	// WorkqueueTasksTotal counts completed tasks by outcome.
	WorkqueueTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nakd_workqueue_tasks_total",
			Help: "Total number of workqueue tasks by outcome",
		},
		[]string{"name", "outcome"}, // outcome: ok | error | cancelled | timeout
	)

	// WorkqueueTaskDuration measures task execution latency.
	WorkqueueTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nakd_workqueue_task_duration_seconds",
			Help:    "Workqueue task execution latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
		[]string{"name"},
	)

	// TimerTicksTotal counts periodic timer firings by name.
	TimerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nakd_timer_ticks_total",
			Help: "Total number of timer callback firings",
		},
		[]string{"name"},
	)

	// StageState reports the current stage as a gauge set (1 = active).
	StageState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nakd_stage_state",
			Help: "Current stage (1 = this is the active stage)",
		},
		[]string{"stage"},
	)

	// StageTransitionsTotal counts stage reconciliations by outcome.
	StageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nakd_stage_transitions_total",
			Help: "Total number of stage transitions",
		},
		[]string{"from", "to", "outcome"},
	)

	// ConnectivityLevel reports the current connectivity level (0=none,1=local,2=internet).
	ConnectivityLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nakd_connectivity_level",
			Help: "Current connectivity level: 0=none 1=local 2=internet",
		},
	)

	// LEDConditionActive reports which named LED condition currently owns the LED.
	LEDConditionActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nakd_led_condition_active",
			Help: "Currently active LED condition (1 = active)",
		},
		[]string{"condition"},
	)

	// WirelessAssociated reports whether the wireless interface is associated.
	WirelessAssociated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nakd_wireless_associated",
			Help: "1 if the wireless interface is associated with an AP",
		},
	)

	// RPCRequestsTotal counts JSON-RPC requests by method and error code.
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nakd_rpc_requests_total",
			Help: "Total number of JSON-RPC requests handled",
		},
		[]string{"method", "code"},
	)

	// RPCConnectionsActive tracks open JSON-RPC connections.
	RPCConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nakd_rpc_connections_active",
			Help: "Number of currently open JSON-RPC connections",
		},
	)
)

// Connectivity level constants shared with internal/connectivity.
const (
	ConnLevelNone     = 0
	ConnLevelLocal    = 1
	ConnLevelInternet = 2
)
