package syncer

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type WriteStatus int

const (
	WritePending WriteStatus = iota
	WriteConfirmed
	WriteFailed
	WriteConflict
	WriteRolledBack
)

func (s WriteStatus) String() string {
	switch s {
	case WriteConfirmed:
		return "confirmed"
	case WriteFailed:
		return "failed"
	case WriteConflict:
		return "conflict"
	case WriteRolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

func (s WriteStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Write tracks one queued whole-collection overwrite.
type Write struct {
	ID         string
	Collection string
	Op         string

	mu       sync.Mutex
	status   WriteStatus
	err      error
	revision int64
	attempts int
	done     chan struct{}
}

func newWrite(collection, op string) *Write {
	return &Write{
		ID:         uuid.NewString(),
		Collection: collection,
		Op:         op,
		done:       make(chan struct{}),
	}
}

func (w *Write) resolve(status WriteStatus, revision int64, attempts int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != WritePending {
		return
	}
	w.status = status
	w.revision = revision
	w.attempts = attempts
	w.err = err
	close(w.done)
}

// Wait blocks until the write completes or ctx is done. It returns the
// write's error, or ctx.Err() if the wait was cut short.
func (w *Write) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return w.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Write) Done() <-chan struct{} { return w.done }

func (w *Write) Status() WriteStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Write) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Revision is the store revision assigned to a confirmed write.
func (w *Write) Revision() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.revision
}

func (w *Write) Attempts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}
