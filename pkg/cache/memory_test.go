package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davisshaver/audiencesync/pkg/cache"
)

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](time.Minute)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v", 0))

		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", v)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](time.Minute)
		defer c.Close()

		_, err := c.Get(ctx, "nope")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](time.Minute)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
		time.Sleep(30 * time.Millisecond)

		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("negative TTL never expires", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](10 * time.Millisecond)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v", -1))
		time.Sleep(30 * time.Millisecond)

		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", v)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](time.Minute)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", "v", 0))
		require.NoError(t, c.Delete(ctx, "k"))
		require.NoError(t, c.Delete(ctx, "k"))

		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("operations after close", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](time.Minute)
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrClosed)
		require.ErrorIs(t, c.Set(ctx, "k", "v", 0), cache.ErrClosed)
		require.ErrorIs(t, c.Delete(ctx, "k"), cache.ErrClosed)
	})
}

func TestGetOrLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("loads once then serves from cache", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int](time.Minute)
		defer c.Close()

		var loads int
		load := func(context.Context) (int, time.Duration, error) {
			loads++
			return 42, time.Minute, nil
		}

		for range 3 {
			v, err := cache.GetOrLoad(ctx, c, "answer", load)
			require.NoError(t, err)
			require.Equal(t, 42, v)
		}
		require.Equal(t, 1, loads)
	})

	t.Run("load errors are not cached", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int](time.Minute)
		defer c.Close()

		calls := 0
		load := func(context.Context) (int, time.Duration, error) {
			calls++
			if calls == 1 {
				return 0, 0, errors.New("transient")
			}
			return 7, time.Minute, nil
		}

		_, err := cache.GetOrLoad(ctx, c, "flaky", load)
		require.ErrorContains(t, err, "transient")

		v, err := cache.GetOrLoad(ctx, c, "flaky", load)
		require.NoError(t, err)
		require.Equal(t, 7, v)
		require.Equal(t, 2, calls)
	})

	t.Run("concurrent misses collapse into one load", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int](time.Minute)
		defer c.Close()

		var (
			mu    sync.Mutex
			loads int
		)
		gate := make(chan struct{})
		load := func(context.Context) (int, time.Duration, error) {
			<-gate
			mu.Lock()
			loads++
			mu.Unlock()
			return 1, time.Minute, nil
		}

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := cache.GetOrLoad(ctx, c, "shared", load)
				require.NoError(t, err)
				require.Equal(t, 1, v)
			}()
		}
		// Let every goroutine reach the in-flight call before releasing it.
		time.Sleep(50 * time.Millisecond)
		close(gate)
		wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, 1, loads)
	})
}
