package pebblecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := New(dir)
	require.NoError(t, err)

	_, ok, err := c.Get("cache_inventory")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("cache_inventory", `[{"id":"item-1"}]`))
	require.NoError(t, c.Close())

	c, err = New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	v, ok, err := c.Get("cache_inventory")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"item-1"}]`, v)
}

func TestCacheOverwrite(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set("cache_orders", "undefined"))
	require.NoError(t, c.Set("cache_orders", `[]`))

	v, ok, err := c.Get("cache_orders")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)
}
