package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NetPo4ki/go-task/task"
)

// ErrScopeTimeout is the Join error when the scope's deadline elapsed
// before the joiner decided to stop and before all subtasks completed.
var ErrScopeTimeout = errors.New("scope: deadline elapsed before join")

var errScopeClosed = errors.New("scope: closed")

// Scope supervises a set of concurrently forked subtasks of type T and
// combines their outcomes into a single result of type R through its
// Joiner. No subtask outlives the scope: Join cancels whatever is still
// running before it returns.
//
// A scope is single-shot. Fork before Join; forking after Join panics.
type Scope[T, R any] struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	joiner Joiner[T, R]
	opts   Options
	obs    Observer
	lim    Limiter
	timer  *time.Timer

	mu        sync.Mutex
	wg        sync.WaitGroup
	subtasks  []*Subtask[T]
	completed int
	stopped   bool
	deadlined bool
	timedOut  bool
	joinerErr error
	joined    bool

	notifyOnce sync.Once
	joinOnce   sync.Once
	result     R
	resultErr  error
}

// New creates a scope owned by parent's context, supervised by joiner.
func New[T, R any](parent context.Context, joiner Joiner[T, R], optFns ...Option) *Scope[T, R] {
	if parent == nil {
		parent = context.Background()
	}
	if joiner == nil {
		panic("scope: joiner must not be nil")
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	ctx, cancel := context.WithCancelCause(parent)
	s := &Scope[T, R]{
		ctx:    ctx,
		cancel: cancel,
		joiner: joiner,
		opts:   opts,
		obs:    opts.Observer,
		lim:    newSemaphoreLimiter(opts.MaxConcurrency),
	}
	if opts.Timeout > 0 {
		s.timer = time.AfterFunc(opts.Timeout, s.deadline)
	}
	if s.obs != nil {
		s.obs.ScopeCreated(ctx)
	}
	return s
}

// AllSucceed creates a scope that succeeds with every subtask value in
// fork order and fails fast on the first failure.
func AllSucceed[T any](parent context.Context, optFns ...Option) *Scope[T, []T] {
	return New(parent, AllSucceedJoiner[T](), optFns...)
}

// AnySucceed creates a scope that succeeds with the first subtask value
// and fails only when every subtask failed.
func AnySucceed[T any](parent context.Context, optFns ...Option) *Scope[T, T] {
	return New(parent, AnySucceedJoiner[T](), optFns...)
}

// FirstComplete creates a scope whose result is the outcome of the
// first subtask to complete, success or failure.
func FirstComplete[T any](parent context.Context, optFns ...Option) *Scope[T, T] {
	return New(parent, FirstCompleteJoiner[T](), optFns...)
}

// Accumulating creates a scope that never stops early and reports
// either every success in fork order or every failure joined.
func Accumulating[T any](parent context.Context, optFns ...Option) *Scope[T, []T] {
	return New(parent, AccumulatingJoiner[T](), optFns...)
}

// Context returns the scope's context. It is cancelled when the scope
// stops, times out, is cancelled explicitly, or finishes joining.
func (s *Scope[T, R]) Context() context.Context { return s.ctx }

// Name returns the configured scope name, or "".
func (s *Scope[T, R]) Name() string { return s.opts.Name }

// Forked returns the number of subtasks forked so far.
func (s *Scope[T, R]) Forked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subtasks)
}

// Active returns the number of subtasks not yet terminal.
func (s *Scope[T, R]) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subtasks) - s.completed
}

// Fork starts t concurrently as a subtask of this scope and returns its
// handle immediately. The subtask runs on the scope's context, so it
// inherits the caller's bindings and is cancelled when the scope stops.
// Fork panics after Join has been called.
func (s *Scope[T, R]) Fork(t task.Task[T]) *Subtask[T] {
	s.mu.Lock()
	if s.joined {
		s.mu.Unlock()
		panic("scope: Fork called after Join")
	}
	st := &Subtask[T]{index: len(s.subtasks), done: make(chan struct{})}
	s.subtasks = append(s.subtasks, st)
	s.wg.Add(1)
	expired := s.deadlined && !s.timedOut && !s.stopped
	if expired {
		s.timedOut = true
	}
	s.mu.Unlock()
	if expired {
		s.cancelWith(ErrScopeTimeout)
	}

	s.opts.Runner(func() {
		defer s.wg.Done()
		if s.lim != nil {
			if err := s.lim.Acquire(s.ctx); err != nil {
				var zero T
				// Never started, so no TaskStarted/TaskFinished pair.
				s.finish(st, zero, err, 0, false)
				return
			}
			defer s.lim.Release()
		}
		if s.obs != nil {
			s.obs.TaskStarted(s.ctx)
		}
		start := time.Now()
		v, err := t.Run(s.ctx)
		s.finish(st, v, err, time.Since(start), true)
	})
	return st
}

// ForkAll forks every task in order and returns the handles.
func (s *Scope[T, R]) ForkAll(tasks []task.Task[T]) []*Subtask[T] {
	handles := make([]*Subtask[T], len(tasks))
	for i, t := range tasks {
		handles[i] = s.Fork(t)
	}
	return handles
}

// finish records a terminal subtask and consults the joiner. started
// reports whether TaskStarted was emitted; a subtask rejected by the
// limiter produces no observer events at all.
func (s *Scope[T, R]) finish(st *Subtask[T], v T, err error, dur time.Duration, started bool) {
	st.complete(v, err)
	if s.obs != nil && started {
		var pe *task.PanicError
		s.obs.TaskFinished(s.ctx, dur, err, errors.As(err, &pe))
	}

	s.mu.Lock()
	s.completed++
	stop, jerr := s.safeOnComplete(st)
	if jerr != nil {
		if s.joinerErr == nil {
			s.joinerErr = jerr
		}
		stop = true
	}
	if stop && !s.timedOut {
		s.stopped = true
	}
	s.mu.Unlock()

	if stop {
		cause := err
		if cause == nil {
			cause = errScopeClosed
		}
		s.cancelWith(cause)
	}
}

// safeOnComplete runs the joiner callback under the scope lock,
// treating a panic as an immediate stop-with-error.
func (s *Scope[T, R]) safeOnComplete(st *Subtask[T]) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			stop = true
			err = fmt.Errorf("scope: joiner OnComplete panicked: %v", r)
		}
	}()
	return s.joiner.OnComplete(st), nil
}

// deadline fires when the scope's timeout elapses. A scope that already
// stopped, or is quiescent with every forked subtask terminal, is not
// timed out, but the elapsed deadline is recorded: a deadline is
// irrevocable, so a Fork arriving later times the scope out immediately.
func (s *Scope[T, R]) deadline() {
	s.mu.Lock()
	s.deadlined = true
	if s.stopped || (len(s.subtasks) > 0 && s.completed == len(s.subtasks)) {
		s.mu.Unlock()
		return
	}
	s.timedOut = true
	s.mu.Unlock()
	s.cancelWith(ErrScopeTimeout)
}

// Cancel cancels the scope with the given cause, signalling every
// subtask to stop. It is idempotent.
func (s *Scope[T, R]) Cancel(cause error) {
	s.cancelWith(cause)
}

func (s *Scope[T, R]) cancelWith(cause error) {
	s.notifyOnce.Do(func() {
		if s.obs != nil {
			s.obs.ScopeCancelled(s.ctx, cause)
		}
	})
	s.cancel(cause)
}

// Join blocks until the joiner signals stop or every subtask is
// terminal, cancels whatever is still running, waits for the drain to
// finish, and returns the joiner's result. Join is idempotent;
// subsequent calls return the same outcome.
func (s *Scope[T, R]) Join() (R, error) {
	s.joinOnce.Do(s.finalize)
	return s.result, s.resultErr
}

// JoinSafe is the non-propagating variant of Join.
func (s *Scope[T, R]) JoinSafe() task.Result[R] {
	r, err := s.Join()
	if err != nil {
		return task.Failure[R](err)
	}
	return task.Success(r)
}

func (s *Scope[T, R]) finalize() {
	s.mu.Lock()
	s.joined = true
	s.mu.Unlock()

	start := time.Now()
	s.wg.Wait()
	if s.timer != nil {
		s.timer.Stop()
	}
	// Close the scope's context without reporting a cancellation: a
	// clean join is not a cancel event for observers.
	s.cancel(errScopeClosed)
	if s.obs != nil {
		s.obs.ScopeJoined(s.ctx, time.Since(start))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.joinerErr != nil:
		s.resultErr = s.joinerErr
	case s.timedOut:
		if fb, ok := s.joiner.(TimeoutFallback[R]); ok {
			if r, ok := fb.OnTimeout(); ok {
				s.result = r
				return
			}
		}
		s.resultErr = ErrScopeTimeout
	default:
		s.result, s.resultErr = s.joiner.Result()
	}
}
