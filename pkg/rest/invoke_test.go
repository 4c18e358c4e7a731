package rest_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/binders"
	"github.com/fivetwenty-io/restpipe/pkg/rest/fallbacks"
	"github.com/fivetwenty-io/restpipe/pkg/rest/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// recordingDispatcher answers from a list of canned results and records
// every request it sees.
type recordingDispatcher struct {
	mutex    sync.Mutex
	requests []*rest.Request
	bodies   []string
	answers  []func() (*rest.Response, error)
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req *rest.Request) (*rest.Response, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.requests = append(d.requests, req)
	if req.Payload() != nil {
		d.bodies = append(d.bodies, req.Payload().String())
	}

	answer := d.answers[0]
	if len(d.answers) > 1 {
		d.answers = d.answers[1:]
	}

	return answer()
}

func respondOK(body string) func() (*rest.Response, error) {
	return func() (*rest.Response, error) {
		return &rest.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Header:     rest.NewHeaders(),
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func respondStatus(code int) func() (*rest.Response, error) {
	return func() (*rest.Response, error) {
		return nil, &rest.HTTPStatusError{StatusCode: code, Method: "GET", URL: "https://api.example.com", Body: []byte(`{"error":"nope"}`)}
	}
}

func TestInvoke_CreatePostsBodyWithAccept(t *testing.T) {
	t.Parallel()

	create := rest.NewDescriptor("servers.create").
		POST("/servers").
		BodyParam("server").
		Accepts("application/json").
		Bind(binders.JSON()).
		Parse(parsers.JSON[*server]()).
		MustBuild()

	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){respondOK(`{"id":"42","name":"web"}`)}}
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com/v1"), dispatcher)

	created, err := rest.Invoke[*server](context.Background(), invoker, create, rest.Args{"server": server{Name: "web"}})
	require.NoError(t, err)
	assert.Equal(t, &server{ID: "42", Name: "web"}, created)

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "POST https://api.example.com/v1/servers", req.RequestLine())
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, `{"id":"","name":"web"}`, dispatcher.bodies[0])
}

func TestInvoke_NotFoundFallbacks(t *testing.T) {
	t.Parallel()

	get := rest.NewDescriptor("servers.get").
		GET("/servers/{id}").
		Parse(parsers.JSON[*server]()).
		Fallback(fallbacks.NullOnNotFound()).
		MustBuild()

	list := rest.NewDescriptor("servers.list").
		GET("/servers").
		Parse(parsers.JSON[[]server]()).
		Fallback(fallbacks.EmptyOnNotFound()).
		MustBuild()

	remove := rest.NewDescriptor("servers.delete").
		DELETE("/servers/{id}").
		Parse(parsers.Bool()).
		Fallback(fallbacks.FalseOnNotFoundOr422()).
		MustBuild()

	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){respondStatus(http.StatusNotFound)}}
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), dispatcher)
	ctx := context.Background()

	found, err := rest.Invoke[*server](ctx, invoker, get, rest.Args{"id": "1"})
	require.NoError(t, err)
	assert.Nil(t, found)

	servers, err := rest.Invoke[[]server](ctx, invoker, list, nil)
	require.NoError(t, err)
	assert.NotNil(t, servers)
	assert.Empty(t, servers)

	deleted, err := rest.Invoke[bool](ctx, invoker, remove, rest.Args{"id": "1"})
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestInvoke_UnmappedFailurePropagates(t *testing.T) {
	t.Parallel()

	get := rest.NewDescriptor("servers.get").
		GET("/servers/{id}").
		Fallback(fallbacks.NullOnNotFound()).
		MustBuild()

	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){respondStatus(http.StatusInternalServerError)}}
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), dispatcher)

	_, err := invoker.Call(context.Background(), get, rest.Args{"id": "1"})
	require.Error(t, err)

	var statusErr *rest.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, `{"error":"nope"}`, string(statusErr.Body))
}

func TestInvoke_RetryReplaysFilters(t *testing.T) {
	t.Parallel()

	var (
		mutex sync.Mutex
		order []string
	)

	track := func(name string) rest.Filter {
		return rest.FilterFunc(name, func(_ context.Context, req *rest.Request) error {
			mutex.Lock()
			defer mutex.Unlock()

			order = append(order, name)
			req.Header.Set("X-"+name, "1")

			return nil
		})
	}

	get := rest.NewDescriptor("servers.get").
		GET("/servers/{id}").
		Parse(parsers.String()).
		Fallback(fallbacks.RetryOnStatus(http.StatusServiceUnavailable)).
		Filter(track("descriptor")).
		MustBuild()

	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){
		respondStatus(http.StatusServiceUnavailable),
		respondStatus(http.StatusServiceUnavailable),
		respondOK("up"),
	}}
	metrics := rest.NewMetricsCollector()
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), dispatcher,
		rest.WithFilters(track("client")),
		rest.WithMetrics(metrics),
	)

	result, err := rest.Invoke[string](context.Background(), invoker, get, rest.Args{"id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "up", result)

	assert.Len(t, dispatcher.requests, 3)
	assert.Equal(t, []string{"client", "descriptor", "client", "descriptor", "client", "descriptor"}, order)
	assert.Equal(t, []string{"client", "descriptor"}, dispatcher.requests[2].AppliedFilters())
	assert.Equal(t, []string{"1"}, dispatcher.requests[2].Header.Values("X-client"))

	stats := metrics.GetMetrics("servers.get")
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.TotalRetries)
	assert.Equal(t, int64(0), stats.TotalErrors)
}

func TestInvoke_RetryIsBounded(t *testing.T) {
	t.Parallel()

	get := rest.NewDescriptor("servers.get").
		GET("/servers/{id}").
		Fallback(fallbacks.RetryOnStatus(http.StatusServiceUnavailable)).
		MustBuild()

	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){respondStatus(http.StatusServiceUnavailable)}}
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), dispatcher, rest.WithMaxFallbackRetries(1))

	_, err := invoker.Call(context.Background(), get, rest.Args{"id": "1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rest.StatusCode(err))
	assert.Len(t, dispatcher.requests, 2)
}

func TestInvoke_MissingArgumentNeverDispatches(t *testing.T) {
	t.Parallel()

	get := rest.NewDescriptor("servers.get").GET("/servers/{id}").MustBuild()
	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){respondOK("")}}
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), dispatcher)

	_, err := invoker.Call(context.Background(), get, rest.Args{})
	assert.ErrorIs(t, err, rest.ErrMissingArgument)
	assert.Empty(t, dispatcher.requests)
}

func TestInvoke_UnexpectedResultType(t *testing.T) {
	t.Parallel()

	get := rest.NewDescriptor("servers.name").GET("/servers/name").Parse(parsers.String()).MustBuild()
	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){respondOK("web")}}
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), dispatcher)

	_, err := rest.Invoke[int](context.Background(), invoker, get, nil)
	assert.ErrorIs(t, err, rest.ErrUnexpectedResult)
}

func TestInvoke_NoDispatcher(t *testing.T) {
	t.Parallel()

	get := rest.NewDescriptor("servers.list").GET("/servers").MustBuild()
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), nil)

	_, err := invoker.Call(context.Background(), get, nil)
	assert.True(t, errors.Is(err, rest.ErrNoDispatcher))
}

func TestInvokeID(t *testing.T) {
	t.Parallel()

	registry := rest.NewRegistry()
	registry.Register("servers.count", func() (*rest.Descriptor, error) {
		return rest.NewDescriptor("servers.count").GET("/servers/count").Parse(parsers.JSON[int]()).Build()
	})

	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){respondOK("3")}}
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), dispatcher, rest.WithRegistry(registry))

	count, err := rest.InvokeID[int](context.Background(), invoker, "servers.count", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = rest.InvokeID[int](context.Background(), invoker, "servers.unknown", nil)
	assert.ErrorIs(t, err, rest.ErrDescriptorNotFound)
}

func TestInvokeAsync(t *testing.T) {
	t.Parallel()

	get := rest.NewDescriptor("servers.name").GET("/servers/name").Parse(parsers.String()).MustBuild()
	dispatcher := &recordingDispatcher{answers: []func() (*rest.Response, error){respondOK("web")}}
	invoker := rest.NewInvoker(baseURL(t, "https://api.example.com"), dispatcher,
		rest.WithExecutor(rest.NewBoundedExecutor(2)))

	pending := rest.InvokeAsync[string](context.Background(), invoker, get, nil)

	name, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "web", name)

	select {
	case <-pending.Done():
	default:
		t.Fatal("pending result not marked done")
	}
}
