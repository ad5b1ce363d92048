package ernconfig_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/erncore/ernconfig"
)

func TestSharedCache_GetOrComputeDedupsConcurrentCallsForSameKey(t *testing.T) {
	c := ernconfig.NewSharedCache()

	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	const n = 8
	var wg sync.WaitGroup
	results := make([]any, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute("key", func() (any, error) {
				atomic.AddInt32(&calls, 1)
				once.Do(func() { close(started) })
				<-release
				return "computed", nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "fn should run exactly once for a shared in-flight key")
	for _, v := range results {
		assert.Equal(t, "computed", v)
	}
}

func TestSharedCache_GetOrComputeCacheHitSkipsRecompute(t *testing.T) {
	c := ernconfig.NewSharedCache()

	var calls int
	fn := func() (any, error) {
		calls++
		return "value", nil
	}

	v1, err := c.GetOrCompute("key", fn)
	require.NoError(t, err)
	v2, err := c.GetOrCompute("key", fn)
	require.NoError(t, err)

	assert.Equal(t, "value", v1)
	assert.Equal(t, "value", v2)
	assert.Equal(t, 1, calls)
}

func TestSharedCache_GetOrComputePropagatesError(t *testing.T) {
	c := ernconfig.NewSharedCache()
	wantErr := errors.New("compute failed")

	_, err := c.GetOrCompute("key", func() (any, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestSharedCache_InvalidateRemovesOnlyThatKey(t *testing.T) {
	c := ernconfig.NewSharedCache()

	var calls int
	fn := func() (any, error) {
		calls++
		return "value", nil
	}

	_, err := c.GetOrCompute("a", fn)
	require.NoError(t, err)
	_, err = c.GetOrCompute("b", fn)
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	c.Invalidate("a")

	_, err = c.GetOrCompute("a", fn)
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "invalidated key recomputes")

	_, err = c.GetOrCompute("b", fn)
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "untouched key stays cached")
}

func TestSharedCache_ResetClearsEverything(t *testing.T) {
	c := ernconfig.NewSharedCache()

	var calls int
	fn := func() (any, error) {
		calls++
		return "value", nil
	}

	_, err := c.GetOrCompute("a", fn)
	require.NoError(t, err)
	_, err = c.GetOrCompute("b", fn)
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	c.Reset()

	_, err = c.GetOrCompute("a", fn)
	require.NoError(t, err)
	_, err = c.GetOrCompute("b", fn)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}
