package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/NetPo4ki/go-task/scope"
	"github.com/NetPo4ki/go-task/task"
)

func TestObserverWorksAsScopeObserver(t *testing.T) {
	t.Parallel()
	obs, err := New(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := scope.AllSucceed[int](context.Background(), scope.WithObserver(obs))
	s.Fork(task.Succeed(1))
	s.Fork(task.Fail[int](context.Canceled))
	if _, err := s.Join(); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewGlobal(t *testing.T) {
	t.Parallel()
	obs, err := NewGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs == nil {
		t.Fatal("expected a non-nil observer")
	}
}
