package task

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrNoBinding is returned by Read when the requested key carries no
// binding on the running task's context.
var ErrNoBinding = errors.New("task: no binding for key")

// PanicError wraps a value recovered from a panicking thunk together
// with the goroutine stack captured at the point of the panic.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

// NewPanicError captures the current stack and wraps the recovered
// value v. It is exported for collaborators (such as resource brackets)
// that recover panics at their own boundaries.
func NewPanicError(v any) *PanicError {
	// 8 KiB covers most stacks; runtime.Stack truncates gracefully.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: string(buf[:n])}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task: panic: %v\n\n%s", e.Value, e.Stack)
}

// TimeoutError reports that a task's own deadline elapsed before it
// completed. It is a recoverable domain failure, deliberately distinct
// from context.DeadlineExceeded so that Recover can intercept it.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return "task: timed out after " + e.After.String()
}

// IsCancellation reports whether err is a cancellation signal rather
// than a domain failure. Cancellation propagates through Recover,
// RecoverWith and MapError untouched; it is a control signal, not an
// error the task logic can handle.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
