package scope

import (
	"context"
	"time"
)

// Observer receives scope and subtask lifecycle events. Implementations
// must be safe for concurrent use; hooks run on the scope's worker
// goroutines and must not block.
type Observer interface {
	ScopeCreated(ctx context.Context)
	ScopeCancelled(ctx context.Context, cause error)
	ScopeJoined(ctx context.Context, wait time.Duration)
	TaskStarted(ctx context.Context)
	TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool)
}
