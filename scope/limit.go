package scope

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds concurrent subtasks within a scope.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

type semLimiter struct {
	w *semaphore.Weighted
}

func newSemaphoreLimiter(n int) Limiter {
	if n <= 0 {
		return nil
	}
	return &semLimiter{w: semaphore.NewWeighted(int64(n))}
}

func (l *semLimiter) Acquire(ctx context.Context) error {
	return l.w.Acquire(ctx, 1)
}

func (l *semLimiter) Release() {
	l.w.Release(1)
}
