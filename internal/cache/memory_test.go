package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCountersIncrement(t *testing.T) {
	counters := NewMemoryCounters()
	defer counters.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := counters.Increment(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMemoryCountersIncrementExpires(t *testing.T) {
	counters := NewMemoryCounters()
	defer counters.Close()
	ctx := context.Background()

	_, err := counters.Increment(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	// An expired counter restarts from one.
	got, err := counters.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

// Two concurrent failing attempts must never both observe the
// pre-boundary count: every increment yields a distinct value.
func TestMemoryCountersIncrementIsAtomic(t *testing.T) {
	counters := NewMemoryCounters()
	defer counters.Close()
	ctx := context.Background()

	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	seen := make(chan int64, goroutines*perGoroutine)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				n, err := counters.Increment(ctx, "shared", time.Minute)
				assert.NoError(t, err)
				seen <- n
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for n := range seen {
		assert.False(t, unique[n], "value %d produced twice", n)
		unique[n] = true
	}
	assert.Len(t, unique, goroutines*perGoroutine)
}

func TestMemoryCountersTTL(t *testing.T) {
	counters := NewMemoryCounters()
	defer counters.Close()
	ctx := context.Background()

	require.NoError(t, counters.Set(ctx, "k", []byte("1"), time.Minute))

	remaining, err := counters.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, remaining, 50*time.Second)

	missing, err := counters.TTL(ctx, "absent")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), missing)
}

func TestMemoryCountersGetMiss(t *testing.T) {
	counters := NewMemoryCounters()
	defer counters.Close()

	_, err := counters.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
