package rest

import (
	"context"
	"sync"
)

// Pending is the handle of an asynchronous call. Cancel releases waiters at
// once; the underlying request is cancelled through its context, which does
// not guarantee the server stops processing it.
type Pending[T any] struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	value  T
	err    error
}

// Async runs fn on executor and returns its pending result.
func Async[T any](ctx context.Context, executor Executor, fn func(ctx context.Context) (T, error)) *Pending[T] {
	if executor == nil {
		executor = GoExecutor{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	pending := &Pending[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	executor.Execute(runCtx, func(taskCtx context.Context) {
		defer cancel()

		value, err := fn(taskCtx)
		pending.finish(value, err)
	})

	return pending
}

func (p *Pending[T]) finish(value T, err error) {
	p.once.Do(func() {
		p.value = value
		p.err = err
		close(p.done)
	})
}

// Done is closed when the result is available or the call was cancelled.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Cancel abandons the call. Wait returns ErrCancelled unless the result
// arrived first.
func (p *Pending[T]) Cancel() {
	var zero T

	p.finish(zero, ErrCancelled)
	p.cancel()
}

// Wait blocks until the result is available, the call is cancelled or ctx
// ends.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}
