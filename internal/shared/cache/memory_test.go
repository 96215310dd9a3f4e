package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_LoginAttempts(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	n, err := c.FailedLogins(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := 1; i <= 3; i++ {
		n, err = c.RecordFailedLogin(ctx, "a@example.com", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	// 其他 key 不受影响
	n, _ = c.FailedLogins(ctx, "b@example.com")
	assert.Equal(t, 0, n)

	// 窗口从第一次失败开始，后续失败不延长
	now = now.Add(14 * time.Minute)
	n, _ = c.FailedLogins(ctx, "a@example.com")
	assert.Equal(t, 3, n)

	now = now.Add(time.Minute)
	n, _ = c.FailedLogins(ctx, "a@example.com")
	assert.Equal(t, 0, n)

	// Reset
	_, _ = c.RecordFailedLogin(ctx, "a@example.com", time.Minute)
	require.NoError(t, c.ResetFailedLogins(ctx, "a@example.com"))
	n, _ = c.FailedLogins(ctx, "a@example.com")
	assert.Equal(t, 0, n)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.RecordFailedLogin(ctx, "k", time.Hour)
		}()
	}
	wg.Wait()

	n, err := c.FailedLogins(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestMemoryCache_SweepsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	// 每个 key 只失败一次，之后再也不访问
	for i := 0; i < 2000; i++ {
		_, err := c.RecordFailedLogin(ctx, fmt.Sprintf("stale-%d@sekolah.id|10.0.0.1", i), time.Minute)
		require.NoError(t, err)
	}
	assert.Len(t, c.attempts, 2000)

	now = now.Add(2 * time.Minute)
	for i := 0; i < 100; i++ {
		_, err := c.RecordFailedLogin(ctx, fmt.Sprintf("fresh-%d@sekolah.id|10.0.0.2", i), time.Minute)
		require.NoError(t, err)
	}

	assert.Len(t, c.attempts, 100)
	assert.Equal(t, sweepMinEntries, c.nextSweep)
	n, err := c.FailedLogins(ctx, "fresh-0@sekolah.id|10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
