// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics using a task scope. It enables incremental migration of
// errgroup call sites without changing their shape.
package errgroup

import (
	"context"

	"github.com/NetPo4ki/go-task/scope"
	"github.com/NetPo4ki/go-task/task"
)

// Group is an errgroup-like wrapper over an all-succeed scope.
type Group struct {
	s *scope.Scope[task.Unit, []task.Unit]
}

// WithContext creates a Group bound to ctx. The returned context is
// cancelled when any function passed to Go returns a non-nil error.
func WithContext(ctx context.Context) (*Group, context.Context) {
	s := scope.AllSucceed[task.Unit](ctx)
	return &Group{s: s}, s.Context()
}

// Go starts a function. It should return a non-nil error to signal
// failure.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	g.s.Fork(task.Exec(func(context.Context) error {
		return f()
	}))
}

// Wait blocks until all functions have returned. It returns the first
// non-nil error, or nil when every function succeeded.
func (g *Group) Wait() error {
	_, err := g.s.Join()
	return err
}
