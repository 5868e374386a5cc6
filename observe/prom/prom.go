// Package prom provides a Prometheus-backed scope.Observer.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gotask"

// Observer implements scope.Observer with Prometheus collectors. All
// instruments are registered at construction; one Observer may be
// shared by any number of scopes.
type Observer struct {
	scopesCreated   prometheus.Counter
	scopesCancelled prometheus.Counter
	joins           prometheus.Counter
	joinWait        prometheus.Histogram

	activeTasks   prometheus.Gauge
	tasksStarted  prometheus.Counter
	tasksFinished prometheus.Counter
	tasksErrored  prometheus.Counter
	tasksPanicked prometheus.Counter
	taskDuration  prometheus.Histogram
}

// New registers the observer's collectors with reg and returns the
// observer. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Observer{
		scopesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scope", Name: "created_total",
			Help: "Total scopes created.",
		}),
		scopesCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scope", Name: "cancelled_total",
			Help: "Total scopes cancelled before a clean join.",
		}),
		joins: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scope", Name: "joins_total",
			Help: "Total scope joins.",
		}),
		joinWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scope", Name: "join_wait_seconds",
			Help:    "Time spent waiting in Join for subtasks to drain.",
			Buckets: prometheus.DefBuckets,
		}),
		activeTasks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "task", Name: "active",
			Help: "Subtasks currently executing.",
		}),
		tasksStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "task", Name: "started_total",
			Help: "Total subtasks started.",
		}),
		tasksFinished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "task", Name: "finished_total",
			Help: "Total subtasks finished.",
		}),
		tasksErrored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "task", Name: "errored_total",
			Help: "Total subtasks that finished with an error.",
		}),
		tasksPanicked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "task", Name: "panicked_total",
			Help: "Total subtasks that panicked.",
		}),
		taskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "task", Name: "duration_seconds",
			Help:    "Subtask wall-clock duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ScopeCreated records scope creation.
func (o *Observer) ScopeCreated(_ context.Context) {
	o.scopesCreated.Inc()
}

// ScopeCancelled records scope cancellation.
func (o *Observer) ScopeCancelled(_ context.Context, _ error) {
	o.scopesCancelled.Inc()
}

// ScopeJoined records a join and its drain wait.
func (o *Observer) ScopeJoined(_ context.Context, wait time.Duration) {
	o.joins.Inc()
	o.joinWait.Observe(wait.Seconds())
}

// TaskStarted records a subtask entering execution.
func (o *Observer) TaskStarted(_ context.Context) {
	o.activeTasks.Inc()
	o.tasksStarted.Inc()
}

// TaskFinished records a subtask reaching a terminal state.
func (o *Observer) TaskFinished(_ context.Context, dur time.Duration, err error, panicked bool) {
	o.activeTasks.Dec()
	o.tasksFinished.Inc()
	if err != nil {
		o.tasksErrored.Inc()
	}
	if panicked {
		o.tasksPanicked.Inc()
	}
	o.taskDuration.Observe(dur.Seconds())
}
