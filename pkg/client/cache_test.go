package client

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, c *Cache, resources ...string) {
	t.Helper()
	for _, r := range resources {
		_, err := c.Load(r, "", func() (any, error) { return r, nil })
		require.NoError(t, err)
	}
}

func TestInvalidateCascades(t *testing.T) {
	c := NewCatalogCache()
	fill(t, c, ResLines, ResCompanies, ResDashboard, ResTypes, ResSettings, ResBaseSizes)

	c.Invalidate(ResLines)

	for _, r := range []string{ResLines, ResCompanies, ResDashboard} {
		_, ok := c.Get(r, "")
		assert.False(t, ok, "%s should be dropped", r)
	}
	for _, r := range []string{ResTypes, ResSettings, ResBaseSizes} {
		_, ok := c.Get(r, "")
		assert.True(t, ok, "%s should be kept", r)
	}
}

func TestInvalidateHandlesCycles(t *testing.T) {
	c := NewCache()
	c.DependsOn("a", "b")
	c.DependsOn("b", "a")
	fill(t, c, "a", "b")

	c.Invalidate("a")
	_, okA := c.Get("a", "")
	_, okB := c.Get("b", "")
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestLoadDeduplicatesConcurrentReads(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	fetch := func() (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "v", nil
	}

	var wg, ready sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		ready.Add(1)
		go func(i int) {
			defer wg.Done()
			ready.Done()
			v, err := c.Load(ResTags, "all", fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	<-started
	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "v", v)
	}
}

func TestInFlightResultNotStoredAfterInvalidate(t *testing.T) {
	c := NewCatalogCache()
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan any)
	go func() {
		v, err := c.Load(ResCompanies, "", func() (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	c.Invalidate(ResLines)
	close(release)

	assert.Equal(t, "stale", <-done, "the caller still gets its response")
	_, ok := c.Get(ResCompanies, "")
	assert.False(t, ok, "but it is not cached")

	v, err := c.Load(ResCompanies, "", func() (any, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestLoadAfterInvalidateDoesNotJoinEarlierFetch(t *testing.T) {
	c := NewCatalogCache()
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan any)
	go func() {
		v, err := c.Load(ResCompanies, "", func() (any, error) {
			close(started)
			<-release
			return "old-list", nil
		})
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	c.Invalidate(ResLines)

	v, err := c.Load(ResCompanies, "", func() (any, error) { return "new-list", nil })
	require.NoError(t, err)
	assert.Equal(t, "new-list", v)

	close(release)
	assert.Equal(t, "old-list", <-done)

	cached, ok := c.Get(ResCompanies, "")
	require.True(t, ok)
	assert.Equal(t, "new-list", cached, "the earlier fetch does not overwrite the newer result")
}

func TestLoadErrorsAreNotCached(t *testing.T) {
	c := NewCache()
	_, err := c.Load("x", "k", func() (any, error) { return nil, assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	_, ok := c.Get("x", "k")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	t.Run("drops entries", func(t *testing.T) {
		c := NewCatalogCache()
		fill(t, c, ResSettings, ResTags)
		c.Clear()
		_, ok := c.Get(ResSettings, "")
		assert.False(t, ok)
	})

	t.Run("discards reads in flight", func(t *testing.T) {
		c := NewCatalogCache()
		release := make(chan struct{})
		started := make(chan struct{})

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := c.Load(ResSettings, "", func() (any, error) {
				close(started)
				<-release
				return "user-a-settings", nil
			})
			assert.NoError(t, err)
		}()

		<-started
		c.Clear()
		close(release)
		<-done

		_, ok := c.Get(ResSettings, "")
		assert.False(t, ok, "a read started before Clear is not cached")
	})
}
