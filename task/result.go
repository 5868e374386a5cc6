package task

// Result is the tagged outcome of running a task: either a success
// value or a failure error, never both.
type Result[A any] struct {
	value A
	err   error
}

// Success wraps a value in a successful Result.
func Success[A any](v A) Result[A] {
	return Result[A]{value: v}
}

// Failure wraps an error in a failed Result.
func Failure[A any](err error) Result[A] {
	if err == nil {
		panic("task: Failure requires a non-nil error")
	}
	return Result[A]{err: err}
}

// Succeeded reports whether the result holds a value.
func (r Result[A]) Succeeded() bool { return r.err == nil }

// Value returns the success value, or the zero value on failure.
func (r Result[A]) Value() A { return r.value }

// Err returns the failure error, or nil on success.
func (r Result[A]) Err() error { return r.err }

// Get returns the value and error as an ordinary Go pair.
func (r Result[A]) Get() (A, error) { return r.value, r.err }
