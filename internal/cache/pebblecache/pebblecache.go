package pebblecache

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// Cache stores collection snapshots in a local pebble database.
type Cache struct {
	db *pebble.DB
}

func New(dir string) (*Cache, error) {
	opts := &pebble.Options{
		// Snapshots are small and rewritten whole; a modest memtable is plenty.
		MemTableSize: 8 << 20,
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble cache: %w", err)
	}
	return &Cache{db: d}, nil
}

func (c *Cache) Get(key string) (string, bool, error) {
	v, closer, err := c.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	defer func() { _ = closer.Close() }()
	// v is only valid until closer.Close.
	return string(v), true, nil
}

func (c *Cache) Set(key, value string) error {
	if err := c.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Close() error { return c.db.Close() }
