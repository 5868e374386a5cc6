// Package task provides a lazy, cancellable, composable effect value
// for structured concurrency.
//
// A [Task] describes work; nothing runs until [Task.Run],
// [Task.RunSafe] or [Task.RunAsync] is called. Tasks compose with
// [Map], [FlatMap], [Then] and the error combinators [Task.Recover],
// [Task.RecoverWith] and [Task.MapError]. Because Go methods cannot
// introduce type parameters, the type-changing combinators are package
// functions.
//
// # Cancellation
//
// Cancellation is cooperative and carried by the context passed to Run.
// It is checked at the start of every task and between FlatMap steps,
// and is not interceptable by Recover: a cancelled task still runs its
// pending cleanup, but its logic cannot convert the signal into a
// success. [Task.Uninterruptible] shields a section from the signal
// until it completes; the pending cancellation is then delivered at the
// next interruption point.
//
// # Failure taxonomy
//
// A task fails with its thunk's error, with *[PanicError] when the
// thunk panicked, with *[TimeoutError] when [Task.Timeout] expired, or
// reports cancellation via the context's error. [IsCancellation]
// separates the last class from the rest.
//
// # Bindings
//
// [WithValue] runs a task with a key/value binding active for its
// duration, and [Read] lifts a binding lookup into a task. Bindings
// ride on the context, so work forked inside the task inherits them by
// construction.
package task
