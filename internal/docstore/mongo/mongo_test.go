package mongo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/pharmaflow/internal/docstore"
)

// These tests need a running server; set MONGO_URI to enable them.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	dbName := "pharmaflow_test_" + uuid.NewString()[:8]
	store, err := Connect(context.Background(), uri, dbName, 50*time.Millisecond, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.client.Database(dbName).Drop(context.Background())
		_ = store.Close()
	})
	return store
}

func TestPutRevisions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rev, err := store.Put(ctx, "orders", []byte(`[]`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	_, err = store.Put(ctx, "orders", []byte(`[]`), 0)
	assert.True(t, errors.Is(err, docstore.ErrConflict))

	rev, err = store.Put(ctx, "orders", []byte(`[{"id":"o-1"}]`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	_, err = store.Put(ctx, "orders", []byte(`[]`), 1)
	assert.True(t, errors.Is(err, docstore.ErrConflict))

	rev, err = store.Put(ctx, "orders", []byte(`[]`), docstore.AnyRevision)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rev)
}

func TestSubscribeSeesWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []docstore.Snapshot
	cancel, err := store.Subscribe(ctx, "customers", func(s docstore.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	}, func(error) {})
	require.NoError(t, err)
	defer cancel()

	_, err = store.Put(ctx, "customers", []byte(`[{"id":"c-1","name":"Apollo"}]`), docstore.AnyRevision)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 2 && got[len(got)-1].Revision == 1
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Nil(t, got[0].Value)
}
