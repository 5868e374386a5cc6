package resource

import (
	"context"
	"errors"
	"io"

	"github.com/NetPo4ki/go-task/par"
	"github.com/NetPo4ki/go-task/scope"
	"github.com/NetPo4ki/go-task/task"
)

// finalizer releases one acquisition. It runs on a non-cancellable
// context so that cleanup proceeds even when the surrounding work was
// cancelled.
type finalizer func(ctx context.Context) error

// Resource is an acquire/use/release bracket. For every successful
// acquisition the release runs exactly once, on every exit path of Use:
// normal return, failure, panic, or cancellation. Composed resources
// release in reverse acquisition order.
type Resource[A any] struct {
	alloc func(ctx context.Context) (A, finalizer, error)
}

// Make builds a Resource from an acquire task and a release function.
// release must tolerate being called after a failed use body.
func Make[A any](acquire task.Task[A], release func(A) task.Task[task.Unit]) Resource[A] {
	if release == nil {
		panic("resource: Make requires a non-nil release")
	}
	return Resource[A]{alloc: func(ctx context.Context) (A, finalizer, error) {
		a, err := acquire.Run(ctx)
		if err != nil {
			var zero A
			return zero, nil, err
		}
		fin := func(fctx context.Context) error {
			_, rerr := release(a).Run(fctx)
			return rerr
		}
		return a, fin, nil
	}}
}

// FromCloser builds a Resource whose release calls Close.
func FromCloser[A io.Closer](acquire task.Task[A]) Resource[A] {
	return Make(acquire, func(a A) task.Task[task.Unit] {
		return task.Exec(func(context.Context) error { return a.Close() })
	})
}

// Pure wraps a value with no acquisition and no release. It is the
// identity for resource composition.
func Pure[A any](v A) Resource[A] {
	return Resource[A]{alloc: func(context.Context) (A, finalizer, error) {
		return v, nil, nil
	}}
}

// Use acquires the resource, runs f with it, and releases it before the
// outcome of f propagates. An acquisition failure releases nothing. A
// release failure never suppresses the body's failure: both surface,
// joined with the body failure first.
func Use[A, B any](r Resource[A], f func(A) task.Task[B]) task.Task[B] {
	if f == nil {
		panic("resource: Use requires a non-nil function")
	}
	return task.Of(func(ctx context.Context) (B, error) {
		var zero B
		a, fin, err := r.alloc(ctx)
		if err != nil {
			return zero, err
		}
		b, berr := runBody(ctx, f, a)
		rerr := runRelease(ctx, fin)
		if err := errors.Join(berr, rerr); err != nil {
			return zero, err
		}
		return b, nil
	})
}

// UseValue is Use for a non-effectful body.
func UseValue[A, B any](r Resource[A], f func(A) B) task.Task[B] {
	if f == nil {
		panic("resource: UseValue requires a non-nil function")
	}
	return Use(r, func(a A) task.Task[B] {
		return task.Succeed(f(a))
	})
}

// runBody runs the use body with panic containment, so a panicking body
// cannot skip release.
func runBody[A, B any](ctx context.Context, f func(A) task.Task[B], a A) (b B, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = task.NewPanicError(r)
		}
	}()
	return f(a).Run(ctx)
}

// runRelease runs a finalizer shielded from cancellation.
func runRelease(ctx context.Context, fin finalizer) error {
	if fin == nil {
		return nil
	}
	return fin(context.WithoutCancel(ctx))
}

// Map transforms the acquired value. Release still operates on the
// original acquisition.
func Map[A, B any](r Resource[A], f func(A) B) Resource[B] {
	if f == nil {
		panic("resource: Map requires a non-nil function")
	}
	return Resource[B]{alloc: func(ctx context.Context) (B, finalizer, error) {
		var zero B
		a, fin, err := r.alloc(ctx)
		if err != nil {
			return zero, nil, err
		}
		b, perr := applyGuarded(f, a)
		if perr != nil {
			// The transform failed after acquisition: roll back.
			return zero, nil, errors.Join(perr, runRelease(ctx, fin))
		}
		return b, fin, nil
	}}
}

// FlatMap sequences a dependent resource. The inner resource releases
// before the outer one; if the inner acquisition fails, the outer
// resource is rolled back before the failure propagates.
func FlatMap[A, B any](r Resource[A], f func(A) Resource[B]) Resource[B] {
	if f == nil {
		panic("resource: FlatMap requires a non-nil function")
	}
	return Resource[B]{alloc: func(ctx context.Context) (B, finalizer, error) {
		var zero B
		a, finA, err := r.alloc(ctx)
		if err != nil {
			return zero, nil, err
		}
		inner, perr := applyGuarded(f, a)
		if perr != nil {
			return zero, nil, errors.Join(perr, runRelease(ctx, finA))
		}
		b, finB, err := inner.alloc(ctx)
		if err != nil {
			return zero, nil, errors.Join(err, runRelease(ctx, finA))
		}
		fin := func(fctx context.Context) error {
			return errors.Join(runFin(fctx, finB), runFin(fctx, finA))
		}
		return b, fin, nil
	}}
}

// Both acquires two resources in sequence and releases them in reverse
// order. A failure acquiring b releases a first.
func Both[A, B any](a Resource[A], b Resource[B]) Resource[par.Pair[A, B]] {
	return FlatMap(a, func(va A) Resource[par.Pair[A, B]] {
		return Map(b, func(vb B) par.Pair[A, B] {
			return par.Pair[A, B]{First: va, Second: vb}
		})
	})
}

// ParBoth acquires two resources concurrently through an internal
// scope. If one acquisition fails and the other succeeded, the
// successful one is released before the failure propagates. Release
// order on the combined resource is second then first.
func ParBoth[A, B any](a Resource[A], b Resource[B]) Resource[par.Pair[A, B]] {
	type acquired struct {
		value any
		fin   finalizer
	}
	return Resource[par.Pair[A, B]]{alloc: func(ctx context.Context) (par.Pair[A, B], finalizer, error) {
		var zero par.Pair[A, B]
		sc := scope.AllSucceed[acquired](ctx)
		stA := sc.Fork(task.Of(func(ctx context.Context) (acquired, error) {
			v, fin, err := a.alloc(ctx)
			return acquired{value: v, fin: fin}, err
		}))
		stB := sc.Fork(task.Of(func(ctx context.Context) (acquired, error) {
			v, fin, err := b.alloc(ctx)
			return acquired{value: v, fin: fin}, err
		}))
		_, err := sc.Join()
		if err != nil {
			// Partial acquisition: the scope drained, so both handles
			// are terminal; release whichever side made it through.
			for _, st := range []*scope.Subtask[acquired]{stB, stA} {
				if st.State() == scope.Succeeded {
					err = errors.Join(err, runRelease(ctx, st.Value().fin))
				}
			}
			return zero, nil, err
		}
		ra, rb := stA.Value(), stB.Value()
		fin := func(fctx context.Context) error {
			return errors.Join(runFin(fctx, rb.fin), runFin(fctx, ra.fin))
		}
		return par.Pair[A, B]{First: ra.value.(A), Second: rb.value.(B)}, fin, nil
	}}
}

// WithFinalizer adds a cleanup step that runs after the primary
// release, even when the release fails.
func (r Resource[A]) WithFinalizer(fn func()) Resource[A] {
	if fn == nil {
		panic("resource: WithFinalizer requires a non-nil finalizer")
	}
	return Resource[A]{alloc: func(ctx context.Context) (A, finalizer, error) {
		a, fin, err := r.alloc(ctx)
		if err != nil {
			var zero A
			return zero, nil, err
		}
		wrapped := func(fctx context.Context) error {
			defer fn()
			return runFin(fctx, fin)
		}
		return a, wrapped, nil
	}}
}

// runFin is runRelease without the cancellation shield, for use inside
// an already-shielded finalizer.
func runFin(ctx context.Context, fin finalizer) error {
	if fin == nil {
		return nil
	}
	return fin(ctx)
}

func applyGuarded[A, B any](f func(A) B, a A) (b B, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = task.NewPanicError(r)
		}
	}()
	return f(a), nil
}
