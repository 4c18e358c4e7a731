package rest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/fivetwenty-io/restpipe/internal/constants"
)

type emptyResult struct{}

// Empty is the substitute value for "no items". Invoke turns it into an
// empty non-nil slice or map when T is one, and into the zero value of T
// otherwise.
var Empty interface{} = emptyResult{}

// Invoker runs calls through the pipeline: synthesize, bind, filter,
// dispatch, then parse or fall back.
type Invoker struct {
	base       *url.URL
	dispatcher Dispatcher
	filters    []Filter
	executor   Executor
	logger     Logger
	metrics    *MetricsCollector
	registry   *Registry
	maxRetries int
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithFilters sets the client level filters. They run before the
// descriptor's filters.
func WithFilters(filters ...Filter) InvokerOption {
	return func(i *Invoker) {
		i.filters = append(i.filters, filters...)
	}
}

// WithExecutor sets the executor of asynchronous calls.
func WithExecutor(executor Executor) InvokerOption {
	return func(i *Invoker) {
		i.executor = executor
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(collector *MetricsCollector) InvokerOption {
	return func(i *Invoker) {
		i.metrics = collector
	}
}

// WithRegistry sets the registry InvokeID resolves descriptors in.
func WithRegistry(registry *Registry) InvokerOption {
	return func(i *Invoker) {
		i.registry = registry
	}
}

// WithMaxFallbackRetries bounds how often a fallback may ask for a retry.
func WithMaxFallbackRetries(n int) InvokerOption {
	return func(i *Invoker) {
		i.maxRetries = n
	}
}

// NewInvoker creates an invoker for the API rooted at base.
func NewInvoker(base *url.URL, dispatcher Dispatcher, opts ...InvokerOption) *Invoker {
	invoker := &Invoker{
		base:       base,
		dispatcher: dispatcher,
		executor:   GoExecutor{},
		logger:     NopLogger(),
		registry:   DefaultRegistry(),
		maxRetries: constants.DefaultFallbackRetries,
	}

	for _, opt := range opts {
		opt(invoker)
	}

	if invoker.maxRetries < 0 {
		invoker.maxRetries = 0
	}

	return invoker
}

// BaseURL returns the API root.
func (i *Invoker) BaseURL() *url.URL {
	return i.base
}

// Registry returns the registry used by InvokeID.
func (i *Invoker) Registry() *Registry {
	return i.registry
}

// Metrics returns the metrics collector, or nil.
func (i *Invoker) Metrics() *MetricsCollector {
	return i.metrics
}

// filterChain returns the client filters followed by the descriptor's.
func (i *Invoker) filterChain(d *Descriptor) *FilterChain {
	return NewFilterChain(i.filters...).Append(d.filters...)
}

// Request prepares the request of one call without dispatching it: the
// descriptor is synthesized, bound and filtered.
func (i *Invoker) Request(ctx context.Context, d *Descriptor, args Args) (*Request, error) {
	req, err := Synthesize(i.base, d, args)
	if err != nil {
		return nil, err
	}

	in := bindInput(d, args)

	for _, binder := range d.binders {
		err := binder.Bind(req, in)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", d.id, err)
		}
	}

	err = i.filterChain(d).Apply(ctx, req)
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Call runs one call and returns the untyped result.
func (i *Invoker) Call(ctx context.Context, d *Descriptor, args Args) (interface{}, error) {
	if i.dispatcher == nil {
		return nil, ErrNoDispatcher
	}

	call := callRecord{started: time.Now()}

	result, err := i.call(ctx, d, args, &call)
	call.failed = err != nil

	i.metrics.record(d.id, call)

	return result, err
}

func (i *Invoker) call(ctx context.Context, d *Descriptor, args Args, call *callRecord) (interface{}, error) {
	req, err := i.Request(ctx, d, args)
	if err != nil {
		return nil, err
	}

	for {
		i.logger.Debug("Invoking method", map[string]interface{}{
			"method":  d.id,
			"request": req.RequestLine(),
			"attempt": call.retries + 1,
		})

		resp, err := i.dispatcher.Dispatch(ctx, req)
		if err == nil {
			result, err := d.parser.Parse(resp)
			_ = resp.Close()

			if err != nil {
				return nil, fmt.Errorf("parsing %s response: %w", d.id, err)
			}

			return result, nil
		}

		if !recoverable(err) {
			return nil, err
		}

		outcome := d.fallback.Recover(err)

		switch outcome.Kind {
		case OutcomeSubstitute:
			call.fallback = true

			i.logger.Debug("Fallback substituted result", map[string]interface{}{
				"method": d.id,
				"status": StatusCode(err),
			})

			return outcome.Value, nil
		case OutcomeRetry:
			if call.retries >= i.maxRetries || (req.payload != nil && req.payload.IsStream()) {
				return nil, err
			}

			call.retries++

			i.logger.Warn("Retrying request", map[string]interface{}{
				"method": d.id,
				"status": StatusCode(err),
				"retry":  call.retries,
			})

			err = i.filterChain(d).Apply(ctx, req)
			if err != nil {
				return nil, err
			}
		case OutcomePropagate:
			if outcome.Err != nil {
				return nil, outcome.Err
			}

			return nil, err
		default:
			return nil, err
		}
	}
}

// recoverable reports whether a dispatch error is handed to the fallback.
func recoverable(err error) bool {
	var statusErr *HTTPStatusError

	return errors.As(err, &statusErr) || errors.Is(err, ErrTransport)
}

// Invoke runs one call and returns its typed result.
func Invoke[T any](ctx context.Context, invoker *Invoker, d *Descriptor, args Args) (T, error) {
	result, err := invoker.Call(ctx, d, args)
	if err != nil {
		var zero T

		return zero, err
	}

	return As[T](result)
}

// InvokeID resolves the descriptor by method ID and invokes it.
func InvokeID[T any](ctx context.Context, invoker *Invoker, id string, args Args) (T, error) {
	d, err := invoker.registry.Lookup(id)
	if err != nil {
		var zero T

		return zero, err
	}

	return Invoke[T](ctx, invoker, d, args)
}

// InvokeAsync runs one call on the invoker's executor.
func InvokeAsync[T any](ctx context.Context, invoker *Invoker, d *Descriptor, args Args) *Pending[T] {
	return Async(ctx, invoker.executor, func(ctx context.Context) (T, error) {
		return Invoke[T](ctx, invoker, d, args)
	})
}

// As converts an untyped call result to T. nil becomes the zero value and
// Empty becomes an empty collection.
func As[T any](result interface{}) (T, error) {
	var zero T

	if result == nil {
		return zero, nil
	}

	if _, ok := result.(emptyResult); ok {
		return emptyOf[T](), nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedResult, result, zero)
	}

	return typed, nil
}

func emptyOf[T any]() T {
	var zero T

	kind := reflect.TypeOf(&zero).Elem()

	switch kind.Kind() {
	case reflect.Slice:
		value, _ := reflect.MakeSlice(kind, 0, 0).Interface().(T)

		return value
	case reflect.Map:
		value, _ := reflect.MakeMap(kind).Interface().(T)

		return value
	default:
		return zero
	}
}
