package task

import (
	"context"
	"time"
)

// Unit is the result type of tasks run purely for their effects.
type Unit = struct{}

// Task describes a computation that, when run, produces a value of type A
// or fails with an error. A Task value is immutable and performs no work
// at construction; running it re-executes the underlying thunk each time.
//
// Cancellation is cooperative: the context passed to Run is checked at
// the start of every task and between chained steps, and thunks are
// expected to honour it during blocking work.
type Task[A any] struct {
	run func(ctx context.Context) (A, error)
}

// Of lifts a context-aware computation into a Task. Panics in fn are
// captured as *PanicError when the task runs.
func Of[A any](fn func(ctx context.Context) (A, error)) Task[A] {
	if fn == nil {
		panic("task: Of requires a non-nil function")
	}
	return Task[A]{run: func(ctx context.Context) (A, error) {
		return protect(func() (A, error) { return fn(ctx) })
	}}
}

// Delay lifts a plain thunk into a Task. The thunk is not invoked until
// the task runs.
func Delay[A any](thunk func() (A, error)) Task[A] {
	if thunk == nil {
		panic("task: Delay requires a non-nil thunk")
	}
	return Task[A]{run: func(context.Context) (A, error) {
		return protect(thunk)
	}}
}

// Succeed returns a Task that yields v without invoking any thunk.
func Succeed[A any](v A) Task[A] {
	return Task[A]{run: func(context.Context) (A, error) {
		return v, nil
	}}
}

// Fail returns a Task that fails with err without invoking any thunk.
func Fail[A any](err error) Task[A] {
	if err == nil {
		panic("task: Fail requires a non-nil error")
	}
	return Task[A]{run: func(context.Context) (A, error) {
		var zero A
		return zero, err
	}}
}

// Exec lifts an effect that produces no value into a Task[Unit].
func Exec(fn func(ctx context.Context) error) Task[Unit] {
	if fn == nil {
		panic("task: Exec requires a non-nil function")
	}
	return Of(func(ctx context.Context) (Unit, error) {
		return Unit{}, fn(ctx)
	})
}

// Run executes the task, blocking until it completes. The context is
// observed at entry; a task chained after an uninterruptible section
// sees a pending cancellation here.
func (t Task[A]) Run(ctx context.Context) (A, error) {
	if t.run == nil {
		panic("task: Run on a zero Task")
	}
	if err := ctx.Err(); err != nil {
		var zero A
		return zero, err
	}
	return t.run(ctx)
}

// RunSafe executes the task and returns a tagged Result instead of
// propagating the error.
func (t Task[A]) RunSafe(ctx context.Context) Result[A] {
	v, err := t.Run(ctx)
	if err != nil {
		return Failure[A](err)
	}
	return Success(v)
}

// RunAsync starts the task on its own goroutine immediately and returns
// a Future for the outcome. The future can cancel the running work.
func (t Task[A]) RunAsync(ctx context.Context) *Future[A] {
	fctx, cancel := context.WithCancel(ctx)
	f := &Future[A]{done: make(chan struct{}), cancel: cancel}
	go func() {
		f.value, f.err = t.Run(fctx)
		cancel()
		close(f.done)
	}()
	return f
}

// Map transforms the success value of t. A failed task passes through
// unchanged.
func Map[A, B any](t Task[A], f func(A) B) Task[B] {
	if f == nil {
		panic("task: Map requires a non-nil function")
	}
	return Task[B]{run: func(ctx context.Context) (B, error) {
		a, err := t.Run(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return protect(func() (B, error) { return f(a), nil })
	}}
}

// FlatMap sequences a dependent task. Failure of t or of the
// continuation short-circuits the chain. The context is re-checked
// between the two steps, which is where a cancellation deferred by an
// uninterruptible section is delivered.
func FlatMap[A, B any](t Task[A], f func(A) Task[B]) Task[B] {
	if f == nil {
		panic("task: FlatMap requires a non-nil function")
	}
	return Task[B]{run: func(ctx context.Context) (B, error) {
		var zero B
		a, err := t.Run(ctx)
		if err != nil {
			return zero, err
		}
		next, err := protect(func() (Task[B], error) { return f(a), nil })
		if err != nil {
			return zero, err
		}
		return next.Run(ctx)
	}}
}

// Then sequences next after t, discarding t's result.
func Then[A, B any](t Task[A], next Task[B]) Task[B] {
	return FlatMap(t, func(A) Task[B] { return next })
}

// Peek performs a side effect on the success value without modifying it.
func (t Task[A]) Peek(action func(A)) Task[A] {
	if action == nil {
		panic("task: Peek requires a non-nil action")
	}
	return Task[A]{run: func(ctx context.Context) (A, error) {
		a, err := t.Run(ctx)
		if err != nil {
			return a, err
		}
		return protect(func() (A, error) {
			action(a)
			return a, nil
		})
	}}
}

// AsUnit discards the task's result.
func AsUnit[A any](t Task[A]) Task[Unit] {
	return Map(t, func(A) Unit { return Unit{} })
}

// Recover replaces a failure with a pure value. Success values and
// cancellation signals pass through unchanged.
func (t Task[A]) Recover(f func(error) A) Task[A] {
	if f == nil {
		panic("task: Recover requires a non-nil function")
	}
	return Task[A]{run: func(ctx context.Context) (A, error) {
		a, err := t.Run(ctx)
		if err == nil || IsCancellation(err) {
			return a, err
		}
		return protect(func() (A, error) { return f(err), nil })
	}}
}

// RecoverWith replaces a failure with another task. Success values and
// cancellation signals pass through unchanged.
func (t Task[A]) RecoverWith(f func(error) Task[A]) Task[A] {
	if f == nil {
		panic("task: RecoverWith requires a non-nil function")
	}
	return Task[A]{run: func(ctx context.Context) (A, error) {
		a, err := t.Run(ctx)
		if err == nil || IsCancellation(err) {
			return a, err
		}
		next, perr := protect(func() (Task[A], error) { return f(err), nil })
		if perr != nil {
			var zero A
			return zero, perr
		}
		return next.Run(ctx)
	}}
}

// MapError transforms the error of a failed task. Cancellation signals
// are not transformed.
func (t Task[A]) MapError(f func(error) error) Task[A] {
	if f == nil {
		panic("task: MapError requires a non-nil function")
	}
	return Task[A]{run: func(ctx context.Context) (A, error) {
		a, err := t.Run(ctx)
		if err == nil || IsCancellation(err) {
			return a, err
		}
		return a, f(err)
	}}
}

// Timeout races the task against a deadline. On expiry the underlying
// work is cancelled and the task fails with *TimeoutError. The timeout
// error is a domain failure and can be recovered, unlike an ambient
// context deadline.
func (t Task[A]) Timeout(d time.Duration) Task[A] {
	return Task[A]{run: func(ctx context.Context) (A, error) {
		var zero A
		tctx, cancel := context.WithCancel(ctx)
		defer cancel()

		fut := t.RunAsync(tctx)
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-fut.Done():
			return fut.Wait()
		case <-timer.C:
			cancel()
			return zero, &TimeoutError{After: d}
		case <-ctx.Done():
			cancel()
			return zero, ctx.Err()
		}
	}}
}

// Uninterruptible returns a task that ignores external cancellation
// while running. Once started it runs to completion; a pending
// cancellation is delivered at the next interruption point.
func (t Task[A]) Uninterruptible() Task[A] {
	return Task[A]{run: func(ctx context.Context) (A, error) {
		return t.Run(context.WithoutCancel(ctx))
	}}
}

// Interruptible returns a task that re-checks the live context at
// entry. This is the default behaviour; the method exists to restore it
// at the boundary of an uninterruptible section.
func (t Task[A]) Interruptible() Task[A] {
	return Task[A]{run: func(ctx context.Context) (A, error) {
		return t.Run(ctx)
	}}
}

// protect invokes fn, converting a panic into a *PanicError.
func protect[A any](fn func() (A, error)) (a A, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()
	return fn()
}
