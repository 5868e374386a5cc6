package task

import (
	"context"
	"fmt"
)

// WithValue runs t with a key/value binding active on its context. The
// binding is inherited by any task forked within t, including subtasks
// forked into a scope opened inside t, because forked work derives its
// context from the running task's context.
func WithValue[A any](t Task[A], key, value any) Task[A] {
	if key == nil {
		panic("task: WithValue requires a non-nil key")
	}
	return Task[A]{run: func(ctx context.Context) (A, error) {
		return t.Run(context.WithValue(ctx, key, value))
	}}
}

// Read lifts a binding lookup into a Task. It fails with ErrNoBinding
// when the key is absent or the bound value is not of type V.
func Read[V any](key any) Task[V] {
	if key == nil {
		panic("task: Read requires a non-nil key")
	}
	return Task[V]{run: func(ctx context.Context) (V, error) {
		var zero V
		v := ctx.Value(key)
		if v == nil {
			return zero, fmt.Errorf("%w: %v", ErrNoBinding, key)
		}
		typed, ok := v.(V)
		if !ok {
			return zero, fmt.Errorf("%w: %v is bound to %T", ErrNoBinding, key, v)
		}
		return typed, nil
	}}
}
