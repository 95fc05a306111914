package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vbonduro/pharmaflow/internal/docstore"
)

type document struct {
	value    []byte
	revision int64
}

type subscriber struct {
	id         int
	path       string
	onSnapshot docstore.SnapshotFunc
}

// Store is an in-process document store. Snapshots are delivered on the
// goroutine that performed the Put.
type Store struct {
	mu     sync.Mutex
	docs   map[string]document
	subs   map[int]*subscriber
	nextID int
	closed bool
}

func New() *Store {
	return &Store{
		docs: make(map[string]document),
		subs: make(map[int]*subscriber),
	}
}

func (s *Store) Subscribe(ctx context.Context, path string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("store closed")
	}
	s.nextID++
	sub := &subscriber{id: s.nextID, path: path, onSnapshot: onSnapshot}
	s.subs[sub.id] = sub
	snap := s.snapshotLocked(path)
	s.mu.Unlock()

	onSnapshot(snap)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub.id)
			s.mu.Unlock()
		})
	}
	context.AfterFunc(ctx, cancel)
	return cancel, nil
}

func (s *Store) Put(ctx context.Context, path string, value []byte, expectedRevision int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, fmt.Errorf("store closed")
	}
	cur := s.docs[path]
	if expectedRevision != docstore.AnyRevision && cur.revision != expectedRevision {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s at revision %d, expected %d", docstore.ErrConflict, path, cur.revision, expectedRevision)
	}
	doc := document{value: append([]byte(nil), value...), revision: cur.revision + 1}
	s.docs[path] = doc
	snap := s.snapshotLocked(path)
	var targets []docstore.SnapshotFunc
	for _, sub := range s.subs {
		if sub.path == path {
			targets = append(targets, sub.onSnapshot)
		}
	}
	s.mu.Unlock()

	for _, fn := range targets {
		fn(snap)
	}
	return doc.revision, nil
}

// Get returns the current snapshot for path without subscribing.
func (s *Store) Get(path string) docstore.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(path)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]*subscriber)
	return nil
}

func (s *Store) snapshotLocked(path string) docstore.Snapshot {
	doc, ok := s.docs[path]
	if !ok {
		return docstore.Snapshot{Path: path}
	}
	return docstore.Snapshot{
		Path:     path,
		Value:    append([]byte(nil), doc.value...),
		Revision: doc.revision,
	}
}
