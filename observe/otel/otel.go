package otel

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/NetPo4ki/go-task"

// Observer implements scope.Observer with OpenTelemetry metric
// instruments.
type Observer struct {
	scopesCreated   metric.Int64Counter
	scopesCancelled metric.Int64Counter
	joins           metric.Int64Counter
	joinWait        metric.Float64Histogram

	activeTasks   metric.Int64UpDownCounter
	tasksStarted  metric.Int64Counter
	tasksFinished metric.Int64Counter
	tasksErrored  metric.Int64Counter
	tasksPanicked metric.Int64Counter
	taskDuration  metric.Float64Histogram
}

// New creates an Observer with instruments registered on meter.
func New(meter metric.Meter) (*Observer, error) {
	o := &Observer{}
	var errs []error
	instrument := func(register func() error) {
		if err := register(); err != nil {
			errs = append(errs, err)
		}
	}
	instrument(func() (err error) {
		o.scopesCreated, err = meter.Int64Counter("gotask.scope.created.total",
			metric.WithDescription("Total scopes created"))
		return err
	})
	instrument(func() (err error) {
		o.scopesCancelled, err = meter.Int64Counter("gotask.scope.cancelled.total",
			metric.WithDescription("Total scopes cancelled before a clean join"))
		return err
	})
	instrument(func() (err error) {
		o.joins, err = meter.Int64Counter("gotask.scope.joins.total",
			metric.WithDescription("Total scope joins"))
		return err
	})
	instrument(func() (err error) {
		o.joinWait, err = meter.Float64Histogram("gotask.scope.join_wait_ms",
			metric.WithDescription("Join drain wait in milliseconds"),
			metric.WithUnit("ms"))
		return err
	})
	instrument(func() (err error) {
		o.activeTasks, err = meter.Int64UpDownCounter("gotask.task.active",
			metric.WithDescription("Subtasks currently executing"))
		return err
	})
	instrument(func() (err error) {
		o.tasksStarted, err = meter.Int64Counter("gotask.task.started.total",
			metric.WithDescription("Total subtasks started"))
		return err
	})
	instrument(func() (err error) {
		o.tasksFinished, err = meter.Int64Counter("gotask.task.finished.total",
			metric.WithDescription("Total subtasks finished"))
		return err
	})
	instrument(func() (err error) {
		o.tasksErrored, err = meter.Int64Counter("gotask.task.errored.total",
			metric.WithDescription("Total subtasks finished with an error"))
		return err
	})
	instrument(func() (err error) {
		o.tasksPanicked, err = meter.Int64Counter("gotask.task.panicked.total",
			metric.WithDescription("Total subtasks that panicked"))
		return err
	})
	instrument(func() (err error) {
		o.taskDuration, err = meter.Float64Histogram("gotask.task.duration_ms",
			metric.WithDescription("Subtask wall-clock duration in milliseconds"),
			metric.WithUnit("ms"))
		return err
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return o, nil
}

// NewGlobal creates an Observer against the globally registered
// MeterProvider.
func NewGlobal() (*Observer, error) {
	return New(otel.GetMeterProvider().Meter(meterName))
}

// ScopeCreated records scope creation.
func (o *Observer) ScopeCreated(ctx context.Context) {
	o.scopesCreated.Add(ctx, 1)
}

// ScopeCancelled records scope cancellation.
func (o *Observer) ScopeCancelled(ctx context.Context, _ error) {
	o.scopesCancelled.Add(ctx, 1)
}

// ScopeJoined records a join and its drain wait.
func (o *Observer) ScopeJoined(ctx context.Context, wait time.Duration) {
	o.joins.Add(ctx, 1)
	o.joinWait.Record(ctx, float64(wait.Milliseconds()))
}

// TaskStarted records a subtask entering execution.
func (o *Observer) TaskStarted(ctx context.Context) {
	o.activeTasks.Add(ctx, 1)
	o.tasksStarted.Add(ctx, 1)
}

// TaskFinished records a subtask reaching a terminal state.
func (o *Observer) TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool) {
	o.activeTasks.Add(ctx, -1)
	o.tasksFinished.Add(ctx, 1)
	if err != nil {
		o.tasksErrored.Add(ctx, 1)
	}
	if panicked {
		o.tasksPanicked.Add(ctx, 1)
	}
	o.taskDuration.Record(ctx, float64(dur.Milliseconds()))
}
