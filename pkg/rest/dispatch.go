package rest

import "context"

// Dispatcher sends a request over a transport. A 2xx answer yields a
// Response; anything else yields an *HTTPStatusError, and a failure to get
// an answer at all yields a *TransportError.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *Request) (*Response, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, req *Request) (*Response, error)

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// DispatchAsync sends req on executor and returns immediately.
func DispatchAsync(ctx context.Context, executor Executor, dispatcher Dispatcher, req *Request) *Pending[*Response] {
	return Async(ctx, executor, func(ctx context.Context) (*Response, error) {
		return dispatcher.Dispatch(ctx, req)
	})
}
