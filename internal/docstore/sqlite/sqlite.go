package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/pharmaflow/internal/docstore"
)

const defaultPollInterval = time.Second

// Store keeps each path as one row in the documents table. Subscriptions poll
// the revision column; writes made through this Store wake local subscribers
// immediately.
type Store struct {
	db           *sql.DB
	pollInterval time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	wakers  map[int]chan struct{}
	nextSub int
}

func NewStore(db *sql.DB, pollInterval time.Duration, logger *slog.Logger) *Store {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Store{
		db:           db,
		pollInterval: pollInterval,
		logger:       logger,
		wakers:       make(map[int]chan struct{}),
	}
}

func (s *Store) get(ctx context.Context, path string) (docstore.Snapshot, error) {
	snap := docstore.Snapshot{Path: path}
	err := s.db.QueryRowContext(ctx, `
		SELECT value, revision FROM documents WHERE path = ?
	`, path).Scan(&snap.Value, &snap.Revision)

	if err == sql.ErrNoRows {
		return snap, nil
	}
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	return snap, nil
}

func (s *Store) Put(ctx context.Context, path string, value []byte, expectedRevision int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	err = tx.QueryRowContext(ctx, `
		SELECT revision FROM documents WHERE path = ?
	`, path).Scan(&current)
	exists := true
	if err == sql.ErrNoRows {
		exists = false
	} else if err != nil {
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}

	if expectedRevision != docstore.AnyRevision && current != expectedRevision {
		return 0, fmt.Errorf("%w: %s at revision %d, expected %d", docstore.ErrConflict, path, current, expectedRevision)
	}

	next := current + 1
	if exists {
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET value = ?, revision = ?, updated_at = datetime('now') WHERE path = ?
		`, value, next, path)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (path, value, revision) VALUES (?, ?, ?)
		`, path, value, next)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write document %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit document %s: %w", path, err)
	}

	s.wakeAll()
	return next, nil
}

func (s *Store) Subscribe(ctx context.Context, path string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (func(), error) {
	first, err := s.get(ctx, path)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	wake := make(chan struct{}, 1)

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.wakers[id] = wake
	s.mu.Unlock()

	onSnapshot(first)

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.wakers, id)
			s.mu.Unlock()
		}()

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		last := first.Revision
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
			case <-wake:
			}

			snap, err := s.get(subCtx, path)
			if err != nil {
				if errors.Is(err, context.Canceled) || subCtx.Err() != nil {
					return
				}
				s.logger.Warn("document poll failed", "path", path, "error", err)
				onError(err)
				return
			}
			if snap.Revision == last {
				continue
			}
			last = snap.Revision
			onSnapshot(snap)
		}
	}()

	return cancel, nil
}

func (s *Store) wakeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.wakers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close does not close the underlying *sql.DB; its owner does.
func (s *Store) Close() error {
	return nil
}
