package docstore

import (
	"context"
	"errors"
)

// AnyRevision disables the compare-and-swap guard on Put.
const AnyRevision int64 = -1

// ErrConflict is returned by Put when the stored revision differs from the
// expected one.
var ErrConflict = errors.New("revision conflict")

// Snapshot is the full value stored at a path. Value is nil when nothing has
// been written yet; Revision is 0 in that case.
type Snapshot struct {
	Path     string
	Value    []byte
	Revision int64
}

type SnapshotFunc func(Snapshot)

type ErrorFunc func(error)

// Store is a key-path document store. Subscribe delivers the current value
// once immediately and again after every accepted Put. A subscription that
// fails calls onError once and delivers nothing afterwards.
type Store interface {
	Subscribe(ctx context.Context, path string, onSnapshot SnapshotFunc, onError ErrorFunc) (cancel func(), err error)
	Put(ctx context.Context, path string, value []byte, expectedRevision int64) (revision int64, err error)
	Close() error
}
