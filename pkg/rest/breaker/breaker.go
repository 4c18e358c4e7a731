// Package breaker stops dispatching to an unhealthy API. After Threshold
// consecutive failures the circuit opens and requests fail fast with
// ErrCircuitOpen until Timeout has passed; then a limited number of probe
// requests decide whether it closes again.
//
// Transport errors and 5xx responses count as failures. Client errors do
// not: the server answered.
package breaker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// Static errors for err113 compliance.
var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// State is the circuit state.
type State int

const (
	// Closed lets requests through.
	Closed State = iota
	// Open rejects requests.
	Open
	// HalfOpen lets a limited number of requests test recovery.
	HalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a circuit breaker. Zero values use the defaults.
type Config struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
	// Timeout is how long the circuit stays open.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// SuccessThreshold is the number of half-open successes that close it.
	SuccessThreshold int `yaml:"success_threshold" mapstructure:"success_threshold"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger logs state changes.
func WithLogger(logger rest.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// Dispatcher wraps another dispatcher with a circuit breaker.
type Dispatcher struct {
	next   rest.Dispatcher
	config Config
	logger rest.Logger
	now    func() time.Time

	mutex       sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
}

// NewDispatcher creates a circuit breaking dispatcher in front of next.
func NewDispatcher(next rest.Dispatcher, config *Config, opts ...Option) *Dispatcher {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}

	if cfg.Threshold <= 0 {
		cfg.Threshold = constants.CircuitBreakerThreshold
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.CircuitBreakerTimeout
	}

	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = constants.CircuitBreakerSuccessThreshold
	}

	d := &Dispatcher{
		next:   next,
		config: cfg,
		logger: rest.NopLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// State returns the current circuit state.
func (d *Dispatcher) State() State {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.current()
}

// Dispatch implements rest.Dispatcher. A rejected request fails with a
// *rest.TransportError wrapping ErrCircuitOpen.
func (d *Dispatcher) Dispatch(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	if !d.allow() {
		return nil, &rest.TransportError{
			Kind:   rest.TransportConnection,
			Method: req.Method,
			URL:    req.Endpoint.String(),
			Err:    ErrCircuitOpen,
		}
	}

	resp, err := d.next.Dispatch(ctx, req)
	d.record(err)

	return resp, err
}

func (d *Dispatcher) allow() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	switch d.current() {
	case Closed:
		return true
	case HalfOpen:
		if d.probes < d.config.SuccessThreshold {
			d.probes++

			return true
		}

		return false
	case Open:
		return false
	default:
		return false
	}
}

func (d *Dispatcher) record(err error) {
	transportErr := &rest.TransportError{}
	if errors.As(err, &transportErr) && transportErr.Kind == rest.TransportCancelled {
		return
	}

	if errors.Is(err, rest.ErrCancelled) || errors.Is(err, context.Canceled) {
		return
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !failed(err) {
		switch d.current() {
		case HalfOpen:
			d.successes++
			if d.successes >= d.config.SuccessThreshold {
				d.transition(Closed)
			}
		case Closed:
			d.failures = 0
		case Open:
		}

		return
	}

	d.failures++
	d.lastFailure = d.now()

	switch d.current() {
	case Closed:
		if d.failures >= d.config.Threshold {
			d.transition(Open)
		}
	case HalfOpen:
		d.transition(Open)
	case Open:
	}
}

// failed reports whether err says the server is unhealthy.
func failed(err error) bool {
	if err == nil {
		return false
	}

	if rest.IsTransport(err) {
		return true
	}

	return rest.StatusCode(err) >= http.StatusInternalServerError
}

// current returns the state, moving from open to half-open once the timeout
// has passed. The mutex must be held.
func (d *Dispatcher) current() State {
	if d.state == Open && d.now().Sub(d.lastFailure) >= d.config.Timeout {
		d.transition(HalfOpen)
	}

	return d.state
}

// transition changes state and resets the counters. The mutex must be held.
func (d *Dispatcher) transition(to State) {
	if d.state == to {
		return
	}

	from := d.state
	d.state = to
	d.successes = 0
	d.probes = 0

	if to == Closed {
		d.failures = 0
	}

	d.logger.Warn("Circuit breaker state changed", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
}
