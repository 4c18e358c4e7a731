package breaker_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/breaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

// scriptedDispatcher answers with the configured status or transport error.
type scriptedDispatcher struct {
	calls  atomic.Int32
	status atomic.Int32
	down   atomic.Bool
}

func (s *scriptedDispatcher) Dispatch(_ context.Context, req *rest.Request) (*rest.Response, error) {
	s.calls.Add(1)

	if s.down.Load() {
		return nil, &rest.TransportError{Kind: rest.TransportConnection, Method: req.Method, URL: req.Endpoint.String(), Err: errRefused}
	}

	status := int(s.status.Load())
	if status >= http.StatusBadRequest {
		return nil, &rest.HTTPStatusError{StatusCode: status, Method: req.Method, URL: req.Endpoint.String()}
	}

	return &rest.Response{StatusCode: http.StatusOK, Header: rest.NewHeaders(), Body: io.NopCloser(strings.NewReader("ok"))}, nil
}

// clock is a settable time source.
type clock struct {
	mutex sync.Mutex
	now   time.Time
}

func (c *clock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.now = c.now.Add(d)
}

func newRequest(t *testing.T) *rest.Request {
	t.Helper()

	endpoint, err := url.Parse("https://api.example.com/v1/servers")
	require.NoError(t, err)

	return rest.NewRequest(http.MethodGet, endpoint)
}

//nolint:funlen
func TestDispatcher(t *testing.T) {
	t.Parallel()

	t.Run("opens after consecutive failures", func(t *testing.T) {
		t.Parallel()

		next := &scriptedDispatcher{}
		next.down.Store(true)

		d := breaker.NewDispatcher(next, &breaker.Config{Threshold: 3, Timeout: time.Minute})

		for range 3 {
			_, err := d.Dispatch(context.Background(), newRequest(t))
			require.ErrorIs(t, err, errRefused)
		}

		assert.Equal(t, breaker.Open, d.State())

		_, err := d.Dispatch(context.Background(), newRequest(t))
		require.ErrorIs(t, err, breaker.ErrCircuitOpen)
		assert.True(t, rest.IsTransport(err))
		assert.Equal(t, int32(3), next.calls.Load())
	})

	t.Run("client errors keep the circuit closed", func(t *testing.T) {
		t.Parallel()

		next := &scriptedDispatcher{}
		next.status.Store(http.StatusNotFound)

		d := breaker.NewDispatcher(next, &breaker.Config{Threshold: 2})

		for range 5 {
			_, err := d.Dispatch(context.Background(), newRequest(t))
			assert.True(t, rest.IsNotFound(err))
		}

		assert.Equal(t, breaker.Closed, d.State())
		assert.Equal(t, int32(5), next.calls.Load())
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		t.Parallel()

		next := &scriptedDispatcher{}
		d := breaker.NewDispatcher(next, &breaker.Config{Threshold: 2})

		next.status.Store(http.StatusServiceUnavailable)
		_, _ = d.Dispatch(context.Background(), newRequest(t))

		next.status.Store(http.StatusOK)
		resp, err := d.Dispatch(context.Background(), newRequest(t))
		require.NoError(t, err)
		_ = resp.Close()

		next.status.Store(http.StatusServiceUnavailable)
		_, _ = d.Dispatch(context.Background(), newRequest(t))

		assert.Equal(t, breaker.Closed, d.State())
	})

	t.Run("half-open probes close the circuit", func(t *testing.T) {
		t.Parallel()

		now := &clock{now: time.Now()}
		next := &scriptedDispatcher{}
		next.status.Store(http.StatusBadGateway)

		d := breaker.NewDispatcher(next,
			&breaker.Config{Threshold: 1, Timeout: 30 * time.Second, SuccessThreshold: 2},
			breaker.WithClock(now.Now),
		)

		_, _ = d.Dispatch(context.Background(), newRequest(t))
		assert.Equal(t, breaker.Open, d.State())

		now.Advance(31 * time.Second)
		assert.Equal(t, breaker.HalfOpen, d.State())

		next.status.Store(http.StatusOK)

		for range 2 {
			resp, err := d.Dispatch(context.Background(), newRequest(t))
			require.NoError(t, err)
			_ = resp.Close()
		}

		assert.Equal(t, breaker.Closed, d.State())
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		t.Parallel()

		now := &clock{now: time.Now()}
		next := &scriptedDispatcher{}
		next.down.Store(true)

		d := breaker.NewDispatcher(next, &breaker.Config{Threshold: 1, Timeout: time.Second}, breaker.WithClock(now.Now))

		_, _ = d.Dispatch(context.Background(), newRequest(t))
		now.Advance(2 * time.Second)

		_, err := d.Dispatch(context.Background(), newRequest(t))
		require.ErrorIs(t, err, errRefused)
		assert.Equal(t, breaker.Open, d.State())
		assert.Equal(t, int32(2), next.calls.Load())
	})
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", breaker.Closed.String())
	assert.Equal(t, "open", breaker.Open.String())
	assert.Equal(t, "half-open", breaker.HalfOpen.String())
}
