package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/NetPo4ki/go-task/par"
	"github.com/NetPo4ki/go-task/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// tracked builds a resource that appends acquire/release events to log.
func tracked(name string, log *[]string) Resource[string] {
	return Make(
		task.Delay(func() (string, error) {
			*log = append(*log, "acquire "+name)
			return name, nil
		}),
		func(v string) task.Task[task.Unit] {
			return task.Exec(func(context.Context) error {
				*log = append(*log, "release "+v)
				return nil
			})
		},
	)
}

func TestUseReleasesAfterBody(t *testing.T) {
	t.Parallel()
	var log []string
	r := tracked("conn", &log)
	v, err := Use(r, func(name string) task.Task[string] {
		return task.Delay(func() (string, error) {
			log = append(log, "use "+name)
			return name + "!", nil
		})
	}).Run(context.Background())
	if err != nil || v != "conn!" {
		t.Fatalf("got (%q, %v)", v, err)
	}
	want := []string{"acquire conn", "use conn", "release conn"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestUseReleasesOnBodyFailure(t *testing.T) {
	t.Parallel()
	releases := atomic.Int32{}
	boom := errors.New("boom")
	r := Make(task.Succeed("x"), func(string) task.Task[task.Unit] {
		return task.Exec(func(context.Context) error {
			releases.Add(1)
			return nil
		})
	})
	_, err := Use(r, func(string) task.Task[int] {
		return task.Fail[int](boom)
	}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if releases.Load() != 1 {
		t.Fatalf("release ran %d times, expected exactly once", releases.Load())
	}
}

func TestUseReleasesOnBodyPanic(t *testing.T) {
	t.Parallel()
	releases := atomic.Int32{}
	r := Make(task.Succeed("x"), func(string) task.Task[task.Unit] {
		return task.Exec(func(context.Context) error {
			releases.Add(1)
			return nil
		})
	})
	_, err := Use(r, func(string) task.Task[int] {
		panic("body bug")
	}).Run(context.Background())
	var pe *task.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if releases.Load() != 1 {
		t.Fatalf("release ran %d times, expected exactly once", releases.Load())
	}
}

func TestUseReleasesOnCancellation(t *testing.T) {
	t.Parallel()
	released := make(chan struct{})
	r := Make(task.Succeed("x"), func(string) task.Task[task.Unit] {
		return task.Exec(func(context.Context) error {
			close(released)
			return nil
		})
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Use(r, func(string) task.Task[int] {
		return task.Of(func(bctx context.Context) (int, error) {
			<-bctx.Done()
			return 0, bctx.Err()
		})
	}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	select {
	case <-released:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("release did not run after cancellation")
	}
}

func TestAcquireFailureReleasesNothing(t *testing.T) {
	t.Parallel()
	boom := errors.New("no capacity")
	releases := atomic.Int32{}
	r := Make(task.Fail[string](boom), func(string) task.Task[task.Unit] {
		return task.Exec(func(context.Context) error {
			releases.Add(1)
			return nil
		})
	})
	_, err := Use(r, func(string) task.Task[int] {
		t.Error("body ran despite acquisition failure")
		return task.Succeed(0)
	}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected acquisition failure, got %v", err)
	}
	if releases.Load() != 0 {
		t.Fatal("release ran for a failed acquisition")
	}
}

func TestReleaseFailureDoesNotSuppressBodyFailure(t *testing.T) {
	t.Parallel()
	bodyErr := errors.New("body failed")
	relErr := errors.New("release failed")
	r := Make(task.Succeed("x"), func(string) task.Task[task.Unit] {
		return task.Exec(func(context.Context) error { return relErr })
	})
	_, err := Use(r, func(string) task.Task[int] {
		return task.Fail[int](bodyErr)
	}).Run(context.Background())
	if !errors.Is(err, bodyErr) || !errors.Is(err, relErr) {
		t.Fatalf("expected both failures, got %v", err)
	}
}

func TestFlatMapReleasesInReverseOrder(t *testing.T) {
	t.Parallel()
	var log []string
	combined := FlatMap(tracked("outer", &log), func(string) Resource[string] {
		return tracked("inner", &log)
	})
	_, err := Use(combined, func(v string) task.Task[string] {
		return task.Succeed(v)
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"acquire outer", "acquire inner", "release inner", "release outer"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatMapInnerFailureRollsBackOuter(t *testing.T) {
	t.Parallel()
	var log []string
	boom := errors.New("inner down")
	combined := FlatMap(tracked("outer", &log), func(string) Resource[int] {
		return Make(task.Fail[int](boom), func(int) task.Task[task.Unit] {
			t.Error("release ran for a failed inner acquisition")
			return task.Succeed(task.Unit{})
		})
	})
	_, err := Use(combined, func(int) task.Task[int] {
		t.Error("body ran despite inner acquisition failure")
		return task.Succeed(0)
	}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	want := []string{"acquire outer", "release outer"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestMapTransformsWithoutTouchingRelease(t *testing.T) {
	t.Parallel()
	var log []string
	lengths := Map(tracked("abc", &log), func(v string) int { return len(v) })
	v, err := UseValue(lengths, func(n int) int { return n * 10 }).Run(context.Background())
	if err != nil || v != 30 {
		t.Fatalf("got (%d, %v)", v, err)
	}
	want := []string{"acquire abc", "release abc"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestMapPanicRollsBack(t *testing.T) {
	t.Parallel()
	var log []string
	bad := Map(tracked("x", &log), func(string) int { panic("transform bug") })
	_, err := Use(bad, func(int) task.Task[int] {
		t.Error("body ran despite transform panic")
		return task.Succeed(0)
	}).Run(context.Background())
	var pe *task.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	want := []string{"acquire x", "release x"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestBothPairsAndReleasesInReverse(t *testing.T) {
	t.Parallel()
	var log []string
	both := Both(tracked("a", &log), tracked("b", &log))
	v, err := UseValue(both, func(p par.Pair[string, string]) string {
		return p.First + p.Second
	}).Run(context.Background())
	if err != nil || v != "ab" {
		t.Fatalf("got (%q, %v)", v, err)
	}
	want := []string{"acquire a", "acquire b", "release b", "release a"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestParBothAcquiresConcurrently(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	mk := func(name string) Resource[string] {
		return Make(
			task.Of(func(ctx context.Context) (string, error) {
				// Both acquisitions must be in flight for either to finish.
				select {
				case gate <- struct{}{}:
				case <-gate:
				case <-ctx.Done():
					return "", ctx.Err()
				}
				return name, nil
			}),
			func(string) task.Task[task.Unit] { return task.Succeed(task.Unit{}) },
		)
	}
	v, err := UseValue(ParBoth(mk("a"), mk("b")), func(p par.Pair[string, string]) string {
		return p.First + p.Second
	}).Run(context.Background())
	if err != nil || v != "ab" {
		t.Fatalf("got (%q, %v)", v, err)
	}
}

func TestParBothRollsBackPartialAcquisition(t *testing.T) {
	t.Parallel()
	boom := errors.New("b down")
	released := atomic.Int32{}
	a := Make(task.Succeed("a"), func(string) task.Task[task.Unit] {
		return task.Exec(func(context.Context) error {
			released.Add(1)
			return nil
		})
	})
	b := Make(task.Of(func(_ context.Context) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "", boom
	}), func(string) task.Task[task.Unit] {
		t.Error("release ran for a failed acquisition")
		return task.Succeed(task.Unit{})
	})
	_, err := Use(ParBoth(a, b), func(par.Pair[string, string]) task.Task[int] {
		t.Error("body ran despite partial acquisition")
		return task.Succeed(0)
	}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if released.Load() != 1 {
		t.Fatalf("surviving acquisition released %d times, expected exactly once", released.Load())
	}
}

type fakeConn struct {
	closed atomic.Int32
}

func (c *fakeConn) Close() error {
	c.closed.Add(1)
	return nil
}

func TestFromCloser(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{}
	r := FromCloser(task.Succeed(conn))
	_, err := Use(r, func(c *fakeConn) task.Task[int] {
		if c != conn {
			t.Error("body received a different value")
		}
		return task.Succeed(1)
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.closed.Load() != 1 {
		t.Fatalf("Close ran %d times, expected exactly once", conn.closed.Load())
	}
}

func TestWithFinalizerRunsEvenWhenReleaseFails(t *testing.T) {
	t.Parallel()
	relErr := errors.New("release failed")
	finalized := atomic.Int32{}
	r := Make(task.Succeed("x"), func(string) task.Task[task.Unit] {
		return task.Exec(func(context.Context) error { return relErr })
	}).WithFinalizer(func() { finalized.Add(1) })
	_, err := Use(r, func(string) task.Task[int] {
		return task.Succeed(1)
	}).Run(context.Background())
	if !errors.Is(err, relErr) {
		t.Fatalf("expected release failure to surface, got %v", err)
	}
	if finalized.Load() != 1 {
		t.Fatalf("finalizer ran %d times, expected exactly once", finalized.Load())
	}
}

func TestPureHasNoRelease(t *testing.T) {
	t.Parallel()
	v, err := UseValue(Pure(41), func(n int) int { return n + 1 }).Run(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("got (%d, %v)", v, err)
	}
}
