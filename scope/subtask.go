package scope

import (
	"errors"
	"sync/atomic"

	"github.com/NetPo4ki/go-task/task"
)

// ErrUnavailable is returned by Subtask.Get while the subtask has not
// reached a terminal state.
var ErrUnavailable = errors.New("scope: subtask still running")

// SubtaskState is the observable state of a forked subtask.
type SubtaskState int32

const (
	// Unavailable means the subtask has not completed yet.
	Unavailable SubtaskState = iota
	// Succeeded means the subtask completed with a value.
	Succeeded
	// Failed means the subtask completed with an error, including
	// cancellation by its owning scope.
	Failed
)

func (s SubtaskState) String() string {
	switch s {
	case Unavailable:
		return "unavailable"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Subtask is a handle to one task forked inside a Scope. It is owned by
// that scope: no other scope can observe or cancel it. The state
// transitions once, from Unavailable to Succeeded or Failed.
type Subtask[T any] struct {
	index int
	done  chan struct{}
	state atomic.Int32
	value T
	err   error
}

// Index returns the fork-order position of this subtask in its scope.
func (st *Subtask[T]) Index() int { return st.index }

// State returns the current state.
func (st *Subtask[T]) State() SubtaskState {
	return SubtaskState(st.state.Load())
}

// Done returns a channel that is closed when the subtask is terminal.
func (st *Subtask[T]) Done() <-chan struct{} { return st.done }

// Get returns the outcome, or ErrUnavailable while still running.
func (st *Subtask[T]) Get() (T, error) {
	switch st.State() {
	case Succeeded:
		return st.value, nil
	case Failed:
		var zero T
		return zero, st.err
	default:
		var zero T
		return zero, ErrUnavailable
	}
}

// Value returns the success value, or the zero value otherwise.
func (st *Subtask[T]) Value() T {
	if st.State() == Succeeded {
		return st.value
	}
	var zero T
	return zero
}

// Err returns the failure error, or nil otherwise.
func (st *Subtask[T]) Err() error {
	if st.State() == Failed {
		return st.err
	}
	return nil
}

// Cancelled reports whether the subtask failed because it was cancelled
// rather than because its own logic failed.
func (st *Subtask[T]) Cancelled() bool {
	return st.State() == Failed && task.IsCancellation(st.err)
}

// complete records the terminal outcome. The value and error are
// published before the atomic state store, which readers load first.
func (st *Subtask[T]) complete(v T, err error) {
	if err != nil {
		st.err = err
		st.state.Store(int32(Failed))
	} else {
		st.value = v
		st.state.Store(int32(Succeeded))
	}
	close(st.done)
}
