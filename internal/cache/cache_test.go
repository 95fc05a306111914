package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "cache_orders", Key("orders"))
	assert.Equal(t, "cache_requirementHistory", Key("requirementHistory"))
}

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory()

	_, ok, err := c.Get("cache_orders")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("cache_orders", `[]`))
	v, ok, err := c.Get("cache_orders")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)
}
