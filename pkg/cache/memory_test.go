package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithClock(func() time.Time { return now }))

	type payload struct {
		Price float64 `json:"price"`
	}
	require.NoError(t, c.Set(ctx, "k", payload{Price: 1.5}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 1.5, got.Price)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	token, ok, err := c.TryLock(ctx, "cycle:trader", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.TryLock(ctx, "cycle:trader", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	assert.True(t, errors.Is(c.Unlock(ctx, "cycle:trader", "other"), ErrNotHeld))
	require.NoError(t, c.Unlock(ctx, "cycle:trader", token))

	_, ok, err = c.TryLock(ctx, "cycle:trader", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetOrLoadCachesResult(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoad(ctx, c, "answer", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)
}
