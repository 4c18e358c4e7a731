package cache_test

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/fivetwenty-io/restpipe/pkg/rest/cache"
	"github.com/fivetwenty-io/restpipe/pkg/rest/filters"
	"github.com/fivetwenty-io/restpipe/pkg/rest/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingDispatcher(calls *atomic.Int32) rest.Dispatcher {
	return rest.DispatcherFunc(func(context.Context, *rest.Request) (*rest.Response, error) {
		calls.Add(1)

		header := rest.NewHeaders()
		header.Set("ETag", `"v1"`)

		return &rest.Response{
			StatusCode: 200,
			Status:     "200 OK",
			Header:     header,
			Body:       io.NopCloser(strings.NewReader("cached body")),
		}, nil
	})
}

func TestDispatcher_ServesCachedGET(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	base, err := url.Parse("https://api.example.com")
	require.NoError(t, err)

	list := rest.NewDescriptor("flavors.list").
		GET("/flavors").
		Accepts("text/plain").
		Parse(parsers.String()).
		CacheFor(time.Minute).
		MustBuild()

	uncached := rest.NewDescriptor("flavors.fresh").
		GET("/flavors/fresh").
		Parse(parsers.String()).
		MustBuild()

	dispatcher := cache.NewDispatcher(countingDispatcher(&calls), cache.NewMemoryCache(10))
	invoker := rest.NewInvoker(base, dispatcher)
	ctx := context.Background()

	for range 3 {
		body, err := rest.Invoke[string](ctx, invoker, list, nil)
		require.NoError(t, err)
		assert.Equal(t, "cached body", body)
	}

	assert.Equal(t, int32(1), calls.Load())

	for range 2 {
		_, err := rest.Invoke[string](ctx, invoker, uncached, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())

	req, err := invoker.Request(ctx, list, nil)
	require.NoError(t, err)
	require.NoError(t, dispatcher.Invalidate(ctx, req))

	_, err = rest.Invoke[string](ctx, invoker, list, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestDispatcher_ExpiresEntries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	base, err := url.Parse("https://api.example.com")
	require.NoError(t, err)

	list := rest.NewDescriptor("flavors.list").
		GET("/flavors").
		Parse(parsers.String()).
		CacheFor(time.Minute).
		MustBuild()

	past := func() time.Time { return time.Now().Add(-time.Hour) }
	dispatcher := cache.NewDispatcher(countingDispatcher(&calls), cache.NewMemoryCache(10), cache.WithClock(past))
	invoker := rest.NewInvoker(base, dispatcher)

	for range 2 {
		_, err := rest.Invoke[string](context.Background(), invoker, list, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcher_SeparatesCredentials(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	base, err := url.Parse("https://api.example.com")
	require.NoError(t, err)

	list := rest.NewDescriptor("flavors.list").
		GET("/flavors").
		Parse(parsers.String()).
		CacheFor(time.Minute).
		MustBuild()

	dispatcher := cache.NewDispatcher(countingDispatcher(&calls), cache.NewMemoryCache(10))
	alice := rest.NewInvoker(base, dispatcher, rest.WithFilters(filters.BearerToken(filters.StaticToken("alice"))))
	bob := rest.NewInvoker(base, dispatcher, rest.WithFilters(filters.BearerToken(filters.StaticToken("bob"))))
	ctx := context.Background()

	aliceReq, err := alice.Request(ctx, list, nil)
	require.NoError(t, err)

	bobReq, err := bob.Request(ctx, list, nil)
	require.NoError(t, err)

	assert.NotEqual(t, cache.Key(aliceReq), cache.Key(bobReq))
	assert.NotContains(t, cache.Key(aliceReq), "alice")

	for range 2 {
		_, err = rest.Invoke[string](ctx, alice, list, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), calls.Load())

	_, err = rest.Invoke[string](ctx, bob, list, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
