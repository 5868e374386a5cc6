package par

import (
	"context"
	"errors"

	"github.com/NetPo4ki/go-task/scope"
	"github.com/NetPo4ki/go-task/task"
)

// ErrNoTasks is returned by Race and FirstSuccess when called with no
// tasks.
var ErrNoTasks = errors.New("par: no tasks provided")

// Pair holds the results of two tasks run in parallel.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple holds the results of three tasks run in parallel.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// erase hides a task's value type so heterogeneous tasks can share one
// scope. The combinators recover the static type when reading results.
func erase[A any](t task.Task[A]) task.Task[any] {
	return task.Map(t, func(v A) any { return v })
}

// Zip runs two tasks in parallel and pairs their results. The first
// failure cancels the other task.
func Zip[A, B any](a task.Task[A], b task.Task[B]) task.Task[Pair[A, B]] {
	return task.Of(func(ctx context.Context) (Pair[A, B], error) {
		var zero Pair[A, B]
		sc := scope.AllSucceed[any](ctx)
		sc.Fork(erase(a))
		sc.Fork(erase(b))
		vals, err := sc.Join()
		if err != nil {
			return zero, err
		}
		return Pair[A, B]{First: vals[0].(A), Second: vals[1].(B)}, nil
	})
}

// Zip3 runs three tasks in parallel and combines their results.
func Zip3[A, B, C any](a task.Task[A], b task.Task[B], c task.Task[C]) task.Task[Triple[A, B, C]] {
	return task.Of(func(ctx context.Context) (Triple[A, B, C], error) {
		var zero Triple[A, B, C]
		sc := scope.AllSucceed[any](ctx)
		sc.Fork(erase(a))
		sc.Fork(erase(b))
		sc.Fork(erase(c))
		vals, err := sc.Join()
		if err != nil {
			return zero, err
		}
		return Triple[A, B, C]{First: vals[0].(A), Second: vals[1].(B), Third: vals[2].(C)}, nil
	})
}

// Map2 runs two tasks in parallel and combines their results with f.
func Map2[A, B, R any](a task.Task[A], b task.Task[B], f func(A, B) R) task.Task[R] {
	if f == nil {
		panic("par: Map2 requires a non-nil function")
	}
	return task.Map(Zip(a, b), func(p Pair[A, B]) R {
		return f(p.First, p.Second)
	})
}

// Map3 runs three tasks in parallel and combines their results with f.
func Map3[A, B, C, R any](a task.Task[A], b task.Task[B], c task.Task[C], f func(A, B, C) R) task.Task[R] {
	if f == nil {
		panic("par: Map3 requires a non-nil function")
	}
	return task.Map(Zip3(a, b, c), func(t Triple[A, B, C]) R {
		return f(t.First, t.Second, t.Third)
	})
}

// All runs every task in parallel and returns the results in input
// order, regardless of completion order. The first failure cancels the
// remaining tasks.
func All[A any](tasks []task.Task[A]) task.Task[[]A] {
	return task.Of(func(ctx context.Context) ([]A, error) {
		sc := scope.AllSucceed[A](ctx)
		sc.ForkAll(tasks)
		return sc.Join()
	})
}

// Traverse maps f over items and runs the resulting tasks in parallel,
// preserving input order in the result.
func Traverse[A, B any](items []A, f func(A) task.Task[B]) task.Task[[]B] {
	if f == nil {
		panic("par: Traverse requires a non-nil function")
	}
	tasks := make([]task.Task[B], len(items))
	for i, item := range items {
		tasks[i] = f(item)
	}
	return All(tasks)
}

// Race runs the tasks in parallel and settles with the outcome of the
// first to complete, success or failure. The losers are cancelled.
func Race[A any](tasks ...task.Task[A]) task.Task[A] {
	return task.Of(func(ctx context.Context) (A, error) {
		var zero A
		if len(tasks) == 0 {
			return zero, ErrNoTasks
		}
		sc := scope.FirstComplete[A](ctx)
		sc.ForkAll(tasks)
		return sc.Join()
	})
}

// FirstSuccess runs the tasks in parallel and returns the first success,
// cancelling the rest. It fails only when every task failed, with all
// failures joined.
func FirstSuccess[A any](tasks ...task.Task[A]) task.Task[A] {
	return task.Of(func(ctx context.Context) (A, error) {
		var zero A
		if len(tasks) == 0 {
			return zero, ErrNoTasks
		}
		sc := scope.AnySucceed[A](ctx)
		sc.ForkAll(tasks)
		return sc.Join()
	})
}

// NOf runs the tasks in parallel and returns the first n success
// values in completion order, cancelling the rest. It fails when fewer
// than n tasks succeed.
func NOf[A any](n int, tasks ...task.Task[A]) task.Task[[]A] {
	return task.Of(func(ctx context.Context) ([]A, error) {
		sc := scope.New(ctx, scope.NSuccessesJoiner[A](n))
		sc.ForkAll(tasks)
		return sc.Join()
	})
}
