package scope

import (
	"errors"
	"slices"
)

// ErrNoSubtasks is returned by joiners whose result requires at least
// one completed subtask when none completed.
var ErrNoSubtasks = errors.New("scope: no subtask completed")

// Joiner decides when a scope should stop and how its subtask outcomes
// combine into one result. OnComplete is invoked synchronously, under
// the scope's lock, for every subtask that reaches a terminal state,
// including subtasks cancelled while the scope drains; returning true
// requests an early stop. Result is invoked once, after every subtask
// is terminal.
//
// A joiner is plain state, not a resource, and must not be shared
// between scopes.
type Joiner[T, R any] interface {
	OnComplete(st *Subtask[T]) bool
	Result() (R, error)
}

// TimeoutFallback is an optional interface for joiners that can produce
// a result when the scope's deadline elapses. When the fallback reports
// ok, Join returns its value instead of ErrScopeTimeout. None of the
// built-in joiners implement it.
type TimeoutFallback[R any] interface {
	OnTimeout() (R, bool)
}

// AllSucceedJoiner stops on the first failure and otherwise collects
// every success. The result preserves fork order regardless of
// completion order.
func AllSucceedJoiner[T any]() Joiner[T, []T] {
	return &allSucceedJoiner[T]{}
}

type allSucceedJoiner[T any] struct {
	successes []*Subtask[T]
	firstErr  error
}

func (j *allSucceedJoiner[T]) OnComplete(st *Subtask[T]) bool {
	if st.State() == Succeeded {
		j.successes = append(j.successes, st)
		return false
	}
	if j.firstErr == nil {
		j.firstErr = st.Err()
	}
	return true
}

func (j *allSucceedJoiner[T]) Result() ([]T, error) {
	if j.firstErr != nil {
		return nil, j.firstErr
	}
	slices.SortFunc(j.successes, func(a, b *Subtask[T]) int {
		return a.Index() - b.Index()
	})
	out := make([]T, len(j.successes))
	for i, st := range j.successes {
		out[i] = st.Value()
	}
	return out, nil
}

// AnySucceedJoiner stops on the first success. It fails only when every
// subtask failed, joining all failures; subtasks cancelled during the
// drain do not count as failures.
func AnySucceedJoiner[T any]() Joiner[T, T] {
	return &anySucceedJoiner[T]{}
}

type anySucceedJoiner[T any] struct {
	winner    *Subtask[T]
	errs      []error
	cancelErr error
}

func (j *anySucceedJoiner[T]) OnComplete(st *Subtask[T]) bool {
	if st.State() == Succeeded {
		if j.winner == nil {
			j.winner = st
		}
		return true
	}
	if st.Cancelled() {
		j.cancelErr = st.Err()
		return false
	}
	j.errs = append(j.errs, st.Err())
	return false
}

func (j *anySucceedJoiner[T]) Result() (T, error) {
	if j.winner != nil {
		return j.winner.Value(), nil
	}
	var zero T
	if len(j.errs) > 0 {
		return zero, errors.Join(j.errs...)
	}
	if j.cancelErr != nil {
		return zero, j.cancelErr
	}
	return zero, ErrNoSubtasks
}

// FirstCompleteJoiner stops on the first terminal subtask of either
// kind and returns its outcome as the scope result. When every subtask
// was cancelled before completing, the cancellation propagates.
func FirstCompleteJoiner[T any]() Joiner[T, T] {
	return &firstCompleteJoiner[T]{}
}

type firstCompleteJoiner[T any] struct {
	first     *Subtask[T]
	cancelErr error
}

func (j *firstCompleteJoiner[T]) OnComplete(st *Subtask[T]) bool {
	if st.Cancelled() {
		if j.cancelErr == nil {
			j.cancelErr = st.Err()
		}
		return j.first != nil
	}
	if j.first == nil {
		j.first = st
	}
	return true
}

func (j *firstCompleteJoiner[T]) Result() (T, error) {
	if j.first == nil {
		var zero T
		if j.cancelErr != nil {
			return zero, j.cancelErr
		}
		return zero, ErrNoSubtasks
	}
	return j.first.Get()
}

// AccumulatingJoiner never stops early. On success the result is every
// success value in fork order; when any subtask failed, all failures
// are joined into one error instead. A subtask cancelled from outside
// the scope marks the result set incomplete, so the cancellation
// propagates rather than a partial success.
func AccumulatingJoiner[T any]() Joiner[T, []T] {
	return &accumulatingJoiner[T]{}
}

type accumulatingJoiner[T any] struct {
	successes []*Subtask[T]
	errs      []error
	cancelErr error
}

func (j *accumulatingJoiner[T]) OnComplete(st *Subtask[T]) bool {
	switch {
	case st.State() == Succeeded:
		j.successes = append(j.successes, st)
	case st.Cancelled():
		if j.cancelErr == nil {
			j.cancelErr = st.Err()
		}
	default:
		j.errs = append(j.errs, st.Err())
	}
	return false
}

func (j *accumulatingJoiner[T]) Result() ([]T, error) {
	if len(j.errs) > 0 {
		return nil, errors.Join(j.errs...)
	}
	if j.cancelErr != nil {
		return nil, j.cancelErr
	}
	slices.SortFunc(j.successes, func(a, b *Subtask[T]) int {
		return a.Index() - b.Index()
	})
	out := make([]T, len(j.successes))
	for i, st := range j.successes {
		out[i] = st.Value()
	}
	return out, nil
}

// CollectingJoiner folds success values through the supplied reduction
// as they complete. The fold observes completion order, not fork order.
// The first failure stops the scope.
func CollectingJoiner[T, R any](init R, fold func(R, T) R) Joiner[T, R] {
	if fold == nil {
		panic("scope: CollectingJoiner requires a non-nil fold")
	}
	return &collectingJoiner[T, R]{acc: init, fold: fold}
}

type collectingJoiner[T, R any] struct {
	acc       R
	fold      func(R, T) R
	firstErr  error
	cancelErr error
}

func (j *collectingJoiner[T, R]) OnComplete(st *Subtask[T]) bool {
	if st.State() == Succeeded {
		j.acc = j.fold(j.acc, st.Value())
		return false
	}
	if st.Cancelled() {
		if j.cancelErr == nil {
			j.cancelErr = st.Err()
		}
		return false
	}
	if j.firstErr == nil {
		j.firstErr = st.Err()
	}
	return true
}

func (j *collectingJoiner[T, R]) Result() (R, error) {
	var zero R
	if j.firstErr != nil {
		return zero, j.firstErr
	}
	// A cancelled subtask without a preceding failure means the scope
	// was cancelled from outside; the fold is incomplete.
	if j.cancelErr != nil {
		return zero, j.cancelErr
	}
	return j.acc, nil
}

// NSuccessesJoiner stops once n subtasks have succeeded, returning
// their values in completion order. If fewer than n succeed, it fails
// with the joined failures.
func NSuccessesJoiner[T any](n int) Joiner[T, []T] {
	if n <= 0 {
		panic("scope: NSuccessesJoiner requires n > 0")
	}
	return &nSuccessesJoiner[T]{n: n}
}

type nSuccessesJoiner[T any] struct {
	n         int
	values    []T
	errs      []error
	cancelErr error
}

func (j *nSuccessesJoiner[T]) OnComplete(st *Subtask[T]) bool {
	if st.State() == Succeeded {
		if len(j.values) < j.n {
			j.values = append(j.values, st.Value())
		}
		return len(j.values) >= j.n
	}
	if st.Cancelled() {
		if j.cancelErr == nil {
			j.cancelErr = st.Err()
		}
		return false
	}
	j.errs = append(j.errs, st.Err())
	return false
}

func (j *nSuccessesJoiner[T]) Result() ([]T, error) {
	if len(j.values) >= j.n {
		return j.values, nil
	}
	if len(j.errs) > 0 {
		return nil, errors.Join(j.errs...)
	}
	if j.cancelErr != nil {
		return nil, j.cancelErr
	}
	return nil, ErrNoSubtasks
}
