package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "doc", []byte(`{"data":[]}`), time.Minute))

	got, err := c.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"data":[]}`), got)

	exists, err := c.Exists(ctx, "doc")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()

	_, err := c.Get(context.Background(), "absent")
	assert.True(t, IsMiss(err))
	assert.EqualError(t, err, "cache miss: absent")
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.True(t, IsMiss(err))

	exists, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCache_NegativeTTLNeverExpires(t *testing.T) {
	c := NewMemoryCacheWithConfig(Config{DefaultTTL: time.Millisecond})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "forever", []byte("v"), -1))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a"))
	_, err := c.Get(ctx, "a")
	assert.True(t, IsMiss(err))

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, "b")
	assert.True(t, IsMiss(err))
}

func TestMemoryCache_CanceledContext(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), context.Canceled)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Options{Driver: DriverNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(ctx, Options{Driver: DriverMemory, TTL: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	c.Close()

	_, err = New(ctx, Options{Driver: "memcached"})
	assert.Error(t, err)
}
