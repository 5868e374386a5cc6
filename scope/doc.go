// Package scope provides structured-concurrency supervision for tasks.
//
// A [Scope] forks tasks as [Subtask]s, owns their lifecycle, and asks
// its [Joiner] when to stop and how to fold the outcomes into a single
// result. Closing the scope via [Scope.Join] guarantees that no subtask
// outlives it: anything still running is cancelled and drained before
// Join returns.
//
// Pre-configured scopes cover the common policies:
//
//	sc := scope.AllSucceed[string](ctx, scope.WithTimeout(time.Second))
//	sc.Fork(fetchA)
//	sc.Fork(fetchB)
//	results, err := sc.Join()
//
// Custom policies implement [Joiner]; the built-in joiners
// ([AllSucceedJoiner], [AnySucceedJoiner], [FirstCompleteJoiner],
// [AccumulatingJoiner], [CollectingJoiner], [NSuccessesJoiner]) are
// ordinary implementations with no privileged access to the scope.
//
// Cancellation flows top-down: cancelling a scope cancels its subtasks,
// and a scope opened inside a forked task inherits that task's context,
// so the signal reaches nested scopes recursively. Use
// [Option] values ([WithName], [WithTimeout], [WithObserver],
// [WithLimit], [WithRunner]) to configure a scope before forking.
package scope
