package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "hwvtepha"

// Task outcomes recorded in hwvtepha_scheduler_tasks_total.
const (
	OutcomeOK        = "ok"
	OutcomeTransient = "transient"
	OutcomeMissing   = "missing_membership"
	OutcomeSkewed    = "skewed_state"
	OutcomeError     = "error"
	OutcomePanic     = "panic"
)

// Replication directions recorded in the replication counters.
const (
	DirectionDownward = "downward"
	DirectionUpward   = "upward"
)

// Metrics holds the engine's Prometheus collectors.
//
// A Metrics built with a nil Registerer still records values; it is simply
// not exported. Tests read the collectors with prometheus/testutil.
type Metrics struct {
	TasksTotal         *prometheus.CounterVec
	QueueDepth         prometheus.Gauge
	TaskDuration       prometheus.Histogram
	ReplicationWrites  *prometheus.CounterVec
	ReplicationSkipped *prometheus.CounterVec
	WaitlistPending    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "scheduler",
				Name:      "tasks_total",
				Help:      "Reconciliation tasks executed, by task name and outcome.",
			},
			[]string{"task", "outcome"},
		),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Tasks waiting for the consumer.",
		}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Reconciliation task duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		ReplicationWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "replication",
				Name:      "writes_total",
				Help:      "Records written by replication, by plane and direction.",
			},
			[]string{"plane", "direction"},
		),
		ReplicationSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "replication",
				Name:      "skipped_total",
				Help:      "Writes skipped because the target already matched.",
			},
			[]string{"plane", "direction"},
		),
		WaitlistPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "waitlist",
			Name:      "pending",
			Help:      "Jobs waiting for their node to connect.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.TasksTotal,
			m.QueueDepth,
			m.TaskDuration,
			m.ReplicationWrites,
			m.ReplicationSkipped,
			m.WaitlistPending,
		)
	}
	return m
}

// Wrote counts n records written on plane in direction.
func (m *Metrics) Wrote(plane, direction string, n int) {
	if n > 0 {
		m.ReplicationWrites.WithLabelValues(plane, direction).Add(float64(n))
	}
}

// Skipped counts n writes elided by the idempotence check.
func (m *Metrics) Skipped(plane, direction string, n int) {
	if n > 0 {
		m.ReplicationSkipped.WithLabelValues(plane, direction).Add(float64(n))
	}
}
