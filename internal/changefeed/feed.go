package changefeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/pharmaflow/internal/syncer"
)

const publishTimeout = 5 * time.Second

// Feed is a syncer.Observer that publishes write reports off the caller's
// goroutine. When the buffer is full new events are dropped and logged.
type Feed struct {
	writer Writer
	logger *slog.Logger
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewFeed(w Writer, buffer int, logger *slog.Logger) *Feed {
	if buffer <= 0 {
		buffer = 256
	}
	f := &Feed{
		writer: w,
		logger: logger,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *Feed) run() {
	defer close(f.done)
	for e := range f.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := f.writer.Append(ctx, e); err != nil {
			f.logger.Warn("failed to publish change event", "write_id", e.WriteID, "collection", e.Collection, "error", err)
		}
		cancel()
	}
}

func (f *Feed) WriteFinished(r syncer.WriteReport) {
	e := Event{
		WriteID:    r.WriteID,
		Collection: r.Collection,
		Op:         r.Op,
		Status:     r.Status.String(),
		Revision:   r.Revision,
		Attempts:   r.Attempts,
		Size:       r.Size,
		TS:         r.At.UnixMilli(),
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.events <- e:
	default:
		f.logger.Warn("change feed buffer full, dropping event", "write_id", e.WriteID, "collection", e.Collection)
	}
}

func (f *Feed) SnapshotApplied(string, int, int64) {}

func (f *Feed) SubscriptionFailed(string, error) {}

// Close stops accepting events, publishes what is buffered until ctx is done
// and closes the writer.
func (f *Feed) Close(ctx context.Context) error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	f.mu.Unlock()

	select {
	case <-f.done:
	case <-ctx.Done():
		f.logger.Warn("change feed closed before draining", "error", ctx.Err())
	}
	return f.writer.Close()
}
