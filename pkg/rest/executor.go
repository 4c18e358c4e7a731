package rest

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Executor runs asynchronous tasks. Concurrency limits are the executor's
// business; dispatchers hold none.
type Executor interface {
	// Execute runs task eventually. The task always runs: when ctx ends
	// before the executor can start it, it runs with the finished context
	// so it can report the cancellation.
	Execute(ctx context.Context, task func(ctx context.Context))
}

// GoExecutor starts one goroutine per task.
type GoExecutor struct{}

// Execute implements Executor.
func (GoExecutor) Execute(ctx context.Context, task func(ctx context.Context)) {
	go task(ctx)
}

// BoundedExecutor runs at most n tasks at a time.
type BoundedExecutor struct {
	slots *semaphore.Weighted
}

// NewBoundedExecutor creates an executor with n slots.
func NewBoundedExecutor(n int) *BoundedExecutor {
	if n <= 0 {
		n = 1
	}

	return &BoundedExecutor{slots: semaphore.NewWeighted(int64(n))}
}

// Execute implements Executor.
func (e *BoundedExecutor) Execute(ctx context.Context, task func(ctx context.Context)) {
	go func() {
		err := e.slots.Acquire(ctx, 1)
		if err != nil {
			task(ctx)

			return
		}

		defer e.slots.Release(1)

		task(ctx)
	}()
}
