package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/pharmaflow/internal/docstore"
)

func TestSubscribeEmitsCurrentValueImmediately(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Put(ctx, "orders", []byte(`[{"id":"o-1"}]`), docstore.AnyRevision)
	require.NoError(t, err)

	var got []docstore.Snapshot
	cancel, err := store.Subscribe(ctx, "orders", func(s docstore.Snapshot) { got = append(got, s) }, func(error) {})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Revision)
	assert.JSONEq(t, `[{"id":"o-1"}]`, string(got[0].Value))
}

func TestSubscribeEmptyPath(t *testing.T) {
	store := New()

	var got []docstore.Snapshot
	cancel, err := store.Subscribe(context.Background(), "customers", func(s docstore.Snapshot) { got = append(got, s) }, func(error) {})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, got, 1)
	assert.Nil(t, got[0].Value)
	assert.Zero(t, got[0].Revision)
}

func TestPutNotifiesOnlyMatchingPath(t *testing.T) {
	store := New()
	ctx := context.Background()

	var orders, inventory int
	c1, err := store.Subscribe(ctx, "orders", func(docstore.Snapshot) { orders++ }, func(error) {})
	require.NoError(t, err)
	defer c1()
	c2, err := store.Subscribe(ctx, "inventory", func(docstore.Snapshot) { inventory++ }, func(error) {})
	require.NoError(t, err)
	defer c2()

	_, err = store.Put(ctx, "orders", []byte(`[]`), docstore.AnyRevision)
	require.NoError(t, err)

	assert.Equal(t, 2, orders)
	assert.Equal(t, 1, inventory)
}

func TestPutCompareAndSwap(t *testing.T) {
	store := New()
	ctx := context.Background()

	rev, err := store.Put(ctx, "orders", []byte(`[]`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	_, err = store.Put(ctx, "orders", []byte(`[1]`), 0)
	assert.True(t, errors.Is(err, docstore.ErrConflict))

	rev, err = store.Put(ctx, "orders", []byte(`[2]`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
	assert.JSONEq(t, `[2]`, string(store.Get("orders").Value))
}

func TestCancelStopsDelivery(t *testing.T) {
	store := New()
	ctx := context.Background()

	count := 0
	cancel, err := store.Subscribe(ctx, "orders", func(docstore.Snapshot) { count++ }, func(error) {})
	require.NoError(t, err)
	cancel()

	_, err = store.Put(ctx, "orders", []byte(`[]`), docstore.AnyRevision)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
