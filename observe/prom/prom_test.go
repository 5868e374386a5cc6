package prom

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/NetPo4ki/go-task/scope"
	"github.com/NetPo4ki/go-task/task"
)

func TestObserverCountsCleanJoin(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	obs := New(reg)

	s := scope.AllSucceed[int](context.Background(), scope.WithObserver(obs))
	s.Fork(task.Succeed(1))
	s.Fork(task.Succeed(2))
	if _, err := s.Join(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"scopes created", obs.scopesCreated, 1},
		{"scopes cancelled", obs.scopesCancelled, 0},
		{"joins", obs.joins, 1},
		{"tasks started", obs.tasksStarted, 2},
		{"tasks finished", obs.tasksFinished, 2},
		{"tasks errored", obs.tasksErrored, 0},
		{"tasks panicked", obs.tasksPanicked, 0},
		{"active tasks", obs.activeTasks, 0},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestObserverCountsFailureAndPanic(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	obs := New(reg)

	s := scope.Accumulating[int](context.Background(), scope.WithObserver(obs))
	s.Fork(task.Fail[int](errors.New("boom")))
	s.Fork(task.Of(func(_ context.Context) (int, error) { panic("bug") }))
	if _, err := s.Join(); err == nil {
		t.Fatal("expected error")
	}

	if got := testutil.ToFloat64(obs.tasksErrored); got != 2 {
		t.Errorf("tasks errored: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(obs.tasksPanicked); got != 1 {
		t.Errorf("tasks panicked: got %v, want 1", got)
	}
}
