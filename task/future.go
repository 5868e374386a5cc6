package task

// Future is a handle to a task started with RunAsync. The zero value is
// not usable.
type Future[A any] struct {
	done   chan struct{}
	value  A
	err    error
	cancel func()
}

// Done returns a channel that is closed when the task has completed.
func (f *Future[A]) Done() <-chan struct{} { return f.done }

// Wait blocks until the task completes and returns its outcome.
func (f *Future[A]) Wait() (A, error) {
	<-f.done
	return f.value, f.err
}

// Cancel requests cooperative cancellation of the running task. It does
// not wait for the task to observe the signal.
func (f *Future[A]) Cancel() { f.cancel() }
