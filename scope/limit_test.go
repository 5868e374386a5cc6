package scope

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NetPo4ki/go-task/task"
)

func TestWithLimitBoundsConcurrency(t *testing.T) {
	t.Parallel()
	const limit = 2
	var current, peak atomic.Int32
	s := AllSucceed[int](context.Background(), WithLimit(limit))
	for i := 0; i < 6; i++ {
		s.Fork(task.Of(func(_ context.Context) (int, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return 0, nil
		}))
	}
	if _, err := s.Join(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := peak.Load(); got > limit {
		t.Fatalf("observed %d concurrent subtasks, limit is %d", got, limit)
	}
}

func TestLimiterWaitHonoursCancellation(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	s := AllSucceed[int](context.Background(), WithLimit(1))
	s.Fork(task.Of(func(_ context.Context) (int, error) {
		close(started)
		<-release
		return 1, nil
	}))
	<-started
	// The second subtask is queued behind the slot holder.
	waiter := s.Fork(task.Succeed(2))
	s.Cancel(errors.New("shutting down"))
	close(release)
	if _, err := s.Join(); err == nil {
		t.Fatal("expected error from cancelled scope")
	}
	if waiter.State() != Failed {
		t.Fatalf("queued subtask should fail when the scope is cancelled, state=%v", waiter.State())
	}
}

func TestWithLimitZeroMeansUnlimited(t *testing.T) {
	t.Parallel()
	s := AllSucceed[int](context.Background(), WithLimit(0))
	for i := 0; i < 4; i++ {
		s.Fork(task.Succeed(i))
	}
	got, err := s.Join()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 results, got %v", got)
	}
}
