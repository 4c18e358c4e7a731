package rest_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fivetwenty-io/restpipe/pkg/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuildsOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	var builds atomic.Int32

	registry := rest.NewRegistry()
	registry.Register("servers.get", func() (*rest.Descriptor, error) {
		builds.Add(1)

		return rest.NewDescriptor("servers.get").GET("/servers/{id}").Build()
	})

	const workers = 50

	results := make([]*rest.Descriptor, workers)

	var wg sync.WaitGroup

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			d, err := registry.Lookup("servers.get")
			assert.NoError(t, err)

			results[i] = d
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())

	for _, d := range results {
		assert.Same(t, results[0], d)
	}
}

func TestRegistry_FailedBuildIsNotMemoized(t *testing.T) {
	t.Parallel()

	attempts := 0
	registry := rest.NewRegistry()
	registry.Register("flaky", func() (*rest.Descriptor, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("not yet")
		}

		return rest.NewDescriptor("flaky").GET("/flaky").Build()
	})

	_, err := registry.Lookup("flaky")
	require.Error(t, err)

	d, err := registry.Lookup("flaky")
	require.NoError(t, err)
	assert.Equal(t, "flaky", d.ID())
	assert.Equal(t, 2, attempts)
}

func TestRegistry_AddAndIDs(t *testing.T) {
	t.Parallel()

	registry := rest.NewRegistry()
	registry.Add(rest.NewDescriptor("b").GET("/b").MustBuild())
	registry.Register("a", func() (*rest.Descriptor, error) {
		return rest.NewDescriptor("a").GET("/a").Build()
	})

	assert.Equal(t, []string{"a", "b"}, registry.IDs())

	_, err := registry.Lookup("c")
	assert.ErrorIs(t, err, rest.ErrDescriptorNotFound)
}
