package syncer

import "errors"

var (
	// ErrClosed is returned by mutations on a torn-down collection.
	ErrClosed = errors.New("collection closed")
	// ErrRolledBack is the error of a queued write cancelled because an
	// earlier write it was computed on top of failed.
	ErrRolledBack = errors.New("write rolled back")
	// ErrNotSynced rejects strict-mode mutations made before the first remote
	// snapshot.
	ErrNotSynced = errors.New("collection not synced yet")
	// ErrUndecodable rejects mutations while the latest remote value cannot
	// be decoded.
	ErrUndecodable = errors.New("remote collection could not be decoded")
)

type State int

const (
	StateUninitialized State = iota
	StateSubscribed
	StateSynced
	StateSubscriptionError
	StateDecodeError
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateSubscribed:
		return "subscribed"
	case StateSynced:
		return "synced"
	case StateSubscriptionError:
		return "subscription_error"
	case StateDecodeError:
		return "decode_error"
	case StateTornDown:
		return "torn_down"
	default:
		return "uninitialized"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
