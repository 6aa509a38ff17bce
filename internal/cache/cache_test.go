package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedis(ctx, mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "abc", "https://example.com"))

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"abc"))

	require.NoError(t, c.Delete(ctx, "abc"))
	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedis_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedis(ctx, mr.Addr(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "abc", "https://example.com"))
	mr.FastForward(2 * time.Second)

	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedis(ctx, addr, time.Minute)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Noop

	require.NoError(t, c.Set(ctx, "abc", "https://example.com"))
	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, c.Delete(ctx, "abc"))
	assert.NoError(t, c.Close())
}
