package scope

import "time"

// Runner launches a scope's worker goroutines. The default runner is a
// plain `go` statement; replace it to pin workers, tag them for
// profiling, or run them through an external pool.
type Runner func(fn func())

// Option configures a scope before any subtask is forked.
type Option func(*Options)

// Options holds scope configuration. Zero values mean: unnamed scope,
// no deadline, no observer, unlimited concurrency, plain goroutines.
type Options struct {
	Name           string
	Timeout        time.Duration
	Observer       Observer
	MaxConcurrency int
	Runner         Runner
}

func defaultOptions() Options {
	return Options{Runner: func(fn func()) { go fn() }}
}

// WithName names the scope for observers and debugging.
func WithName(name string) Option { return func(o *Options) { o.Name = name } }

// WithTimeout sets a deadline for the whole scope, measured from scope
// creation. If it elapses before Join naturally decides to stop, every
// subtask is cancelled and Join fails with ErrScopeTimeout unless the
// joiner provides a TimeoutFallback.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithObserver attaches lifecycle hooks.
func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithLimit bounds the number of subtasks executing concurrently.
// Subtasks beyond the limit wait for a slot, honouring cancellation
// while they wait. n <= 0 means unlimited.
func WithLimit(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

// WithRunner replaces how worker goroutines are launched.
func WithRunner(r Runner) Option {
	return func(o *Options) {
		if r != nil {
			o.Runner = r
		}
	}
}
