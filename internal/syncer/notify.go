package syncer

import (
	"log/slog"
	"time"
)

const (
	NoticeWriteFailed       = "write_failed"
	NoticeWriteConflict     = "write_conflict"
	NoticeSubscriptionError = "subscription_error"
	NoticeDecodeError       = "decode_error"
)

// Notification is a user-facing failure report.
type Notification struct {
	Collection string    `json:"collection"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

type Notifier interface {
	Notify(Notification)
}

type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(note Notification) {
	n.Logger.Warn("sync failure", "collection", note.Collection, "kind", note.Kind, "message", note.Message)
}

type MultiNotifier []Notifier

func (m MultiNotifier) Notify(note Notification) {
	for _, n := range m {
		n.Notify(note)
	}
}

// WriteReport describes a completed write, whatever its outcome.
type WriteReport struct {
	WriteID    string
	Collection string
	Op         string
	Status     WriteStatus
	Revision   int64
	Attempts   int
	Size       int
	Err        error
	At         time.Time
}

// Observer receives synchronizer events for metrics and the change feed.
// Methods are called without any collection lock held.
type Observer interface {
	SnapshotApplied(collection string, size int, revision int64)
	WriteFinished(WriteReport)
	SubscriptionFailed(collection string, err error)
}

type MultiObserver []Observer

func (m MultiObserver) SnapshotApplied(collection string, size int, revision int64) {
	for _, o := range m {
		o.SnapshotApplied(collection, size, revision)
	}
}

func (m MultiObserver) WriteFinished(r WriteReport) {
	for _, o := range m {
		o.WriteFinished(r)
	}
}

func (m MultiObserver) SubscriptionFailed(collection string, err error) {
	for _, o := range m {
		o.SubscriptionFailed(collection, err)
	}
}

type nopObserver struct{}

func (nopObserver) SnapshotApplied(string, int, int64) {}
func (nopObserver) WriteFinished(WriteReport)          {}
func (nopObserver) SubscriptionFailed(string, error)   {}
