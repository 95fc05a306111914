package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/pharmaflow/internal/cache"
	"github.com/vbonduro/pharmaflow/internal/docstore"
)

// Identity tells a collection how to read and assign record ids. An empty
// Prefix means ids are supplied by the caller.
type Identity[T any] struct {
	Prefix string
	ID     func(T) string
	WithID func(T, string) T
}

type pendingWrite[T any] struct {
	write   *Write
	items   []T
	payload []byte
	base    int64
	chained bool
}

// Collection mirrors one remote path in memory and in the local cache.
// Mutations apply locally at once and are written back by a single worker in
// FIFO order.
type Collection[T any] struct {
	name   string
	ident  Identity[T]
	remote docstore.Store
	cache  cache.Cache
	ids    *IDSource
	opts   Options
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	items        []T
	confirmed    []T
	confirmedRev int64
	haveBaseline bool
	queue        []*pendingWrite[T]
	inflight     *pendingWrite[T]
	lastOwnRev   int64
	lastErr      error
	decodeErr    error // set while the latest remote value is unreadable

	subGen      int
	subFailures int
	subCtx      context.Context
	subCancel   context.CancelFunc
	cancelSub   func()

	wake       chan struct{}
	stop       chan struct{}
	workCtx    context.Context
	workCancel context.CancelFunc
	workerDone chan struct{}
}

// NewCollection loads the cached value and starts the write worker. The
// collection stays uninitialized until Open subscribes it.
func NewCollection[T any](name string, ident Identity[T], remote docstore.Store, c cache.Cache, ids *IDSource, opts Options) *Collection[T] {
	opts = opts.withDefaults()
	if ids == nil {
		ids = NewIDSource(opts.Now)
	}
	col := &Collection[T]{
		name:       name,
		ident:      ident,
		remote:     remote,
		cache:      c,
		ids:        ids,
		opts:       opts,
		logger:     opts.Logger.With("collection", name),
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}
	col.workCtx, col.workCancel = context.WithCancel(context.Background())
	col.items = col.loadCache()
	col.confirmed = cloneItems(col.items)

	go col.run()
	return col
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) loadCache() []T {
	raw, ok, err := c.cache.Get(cache.Key(c.name))
	if err != nil {
		c.logger.Warn("failed to read cache", "error", err)
		return []T{}
	}
	if !ok {
		return []T{}
	}
	items, err := decodeItems[T]([]byte(raw))
	if err != nil {
		c.logger.Warn("discarding corrupt cache entry", "error", err)
		return []T{}
	}
	return items
}

// decodeItems treats a missing value, JSON null and the literal "undefined"
// as an empty collection. Malformed JSON and any non-array value are errors.
func decodeItems[T any](raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "undefined" || string(trimmed) == "null" {
		return []T{}, nil
	}
	if trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return []T{}, fmt.Errorf("invalid JSON")
		}
		return []T{}, fmt.Errorf("collection is not a JSON array")
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return []T{}, fmt.Errorf("failed to decode collection: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func encodeItems[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func cloneItems[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func (c *Collection[T]) writeCacheLocked(payload []byte) {
	if err := c.cache.Set(cache.Key(c.name), string(payload)); err != nil {
		c.logger.Warn("failed to write cache", "error", err)
	}
}

// Open attaches the remote listener. Subscription failures do not fail Open;
// they move the collection to subscription_error and are retried.
func (c *Collection[T]) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.subCtx == nil {
		c.subCtx, c.subCancel = context.WithCancel(ctx)
	}
	c.mu.Unlock()

	c.subscribe()
	return nil
}

func (c *Collection[T]) subscribe() {
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	c.subGen++
	gen := c.subGen
	c.state = StateSubscribed
	ctx := c.subCtx
	c.mu.Unlock()

	cancel, err := c.remote.Subscribe(ctx,
		c.name,
		func(snap docstore.Snapshot) { c.onSnapshot(gen, snap) },
		func(err error) { c.onSubscriptionError(gen, err) },
	)
	if err != nil {
		c.onSubscriptionError(gen, fmt.Errorf("failed to subscribe: %w", err))
		return
	}

	c.mu.Lock()
	if c.subGen != gen {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancelSub = cancel
	c.mu.Unlock()
}

func (c *Collection[T]) onSnapshot(gen int, snap docstore.Snapshot) {
	c.mu.Lock()
	if gen != c.subGen {
		c.mu.Unlock()
		return
	}
	c.subFailures = 0
	c.mu.Unlock()
	c.ApplySnapshot(snap)
}

func (c *Collection[T]) onSubscriptionError(gen int, err error) {
	c.mu.Lock()
	if gen != c.subGen || c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	// Bumping the generation silences any late callbacks from the dead listener.
	c.subGen++
	c.state = StateSubscriptionError
	c.lastErr = err
	c.subFailures++
	failures := c.subFailures
	cancel := c.cancelSub
	c.cancelSub = nil
	ctx := c.subCtx
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	delay := c.backoff(failures)
	c.logger.Error("subscription failed", "error", err, "retry_in", delay)
	c.opts.Observer.SubscriptionFailed(c.name, err)
	c.opts.Notifier.Notify(Notification{
		Collection: c.name,
		Kind:       NoticeSubscriptionError,
		Message:    err.Error(),
		At:         c.opts.Now(),
	})

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			c.subscribe()
		case <-ctx.Done():
		}
	}()
}

func (c *Collection[T]) backoff(failures int) time.Duration {
	d := c.opts.RetryBackoff
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= c.opts.MaxBackoff {
			return c.opts.MaxBackoff
		}
	}
	return d
}

// ApplySnapshot installs a remote snapshot as the confirmed baseline.
// Applying the same snapshot twice has no further effect, and snapshots older
// than the confirmed revision are ignored. While local writes are in flight
// the optimistic value is left alone. An undecodable snapshot leaves the
// previous value in place and blocks mutations until a readable one arrives.
func (c *Collection[T]) ApplySnapshot(snap docstore.Snapshot) {
	items, decErr := decodeItems[T](snap.Value)

	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	if c.haveBaseline && snap.Revision < c.confirmedRev {
		c.mu.Unlock()
		c.logger.Debug("ignoring stale snapshot", "revision", snap.Revision)
		return
	}
	if decErr != nil {
		err := fmt.Errorf("%w: revision %d: %v", ErrUndecodable, snap.Revision, decErr)
		c.decodeErr = err
		c.lastErr = err
		c.state = StateDecodeError
		c.mu.Unlock()

		c.logger.Error("remote snapshot rejected, keeping previous value", "revision", snap.Revision, "error", decErr)
		c.opts.Notifier.Notify(Notification{
			Collection: c.name,
			Kind:       NoticeDecodeError,
			Message:    err.Error(),
			At:         c.opts.Now(),
		})
		return
	}
	if c.decodeErr != nil {
		if c.lastErr == c.decodeErr {
			c.lastErr = nil
		}
		c.decodeErr = nil
	}
	c.confirmed = items
	c.confirmedRev = snap.Revision
	c.haveBaseline = true
	c.state = StateSynced
	if c.inflight == nil && len(c.queue) == 0 {
		c.items = cloneItems(items)
		if payload, err := encodeItems(items); err == nil {
			c.writeCacheLocked(payload)
		}
	}
	size := len(items)
	c.mu.Unlock()

	c.opts.Observer.SnapshotApplied(c.name, size, snap.Revision)
}

// Mutate computes the next collection value from the current one and queues
// it for write-back. fn receives a copy it may modify. With StrictWrites a
// collection that has not seen a remote snapshot rejects mutations with
// ErrNotSynced.
func (c *Collection[T]) Mutate(op string, fn func([]T) ([]T, error)) (*Write, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateTornDown {
		return nil, ErrClosed
	}
	if c.decodeErr != nil {
		return nil, c.decodeErr
	}
	if c.opts.StrictWrites && !c.haveBaseline {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotSynced, c.name, c.state)
	}
	next, err := fn(cloneItems(c.items))
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = []T{}
	}
	payload, err := encodeItems(next)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", c.name, err)
	}

	pw := &pendingWrite[T]{
		write:   newWrite(c.name, op),
		items:   next,
		payload: payload,
		base:    docstore.AnyRevision,
	}
	if c.inflight != nil || len(c.queue) > 0 {
		pw.chained = true
	} else if c.haveBaseline {
		pw.base = c.confirmedRev
	}

	c.items = cloneItems(next)
	c.writeCacheLocked(payload)
	c.queue = append(c.queue, pw)

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return pw.write, nil
}

// Add assigns a fresh id and prepends rec.
func (c *Collection[T]) Add(rec T) (T, *Write, error) {
	if c.ident.Prefix != "" {
		rec = c.ident.WithID(rec, c.ids.Next(c.ident.Prefix))
	}
	w, err := c.Mutate("add", func(items []T) ([]T, error) {
		return append([]T{rec}, items...), nil
	})
	return rec, w, err
}

// Update replaces the record with the given id wholesale. An unknown id
// rewrites the collection unchanged.
func (c *Collection[T]) Update(id string, rec T) (*Write, error) {
	rec = c.ident.WithID(rec, id)
	return c.Mutate("update", func(items []T) ([]T, error) {
		for i := range items {
			if c.ident.ID(items[i]) == id {
				items[i] = rec
			}
		}
		return items, nil
	})
}

// Modify applies fn to the record with the given id and reports whether it
// was found. An error from fn aborts the mutation.
func (c *Collection[T]) Modify(id string, fn func(T) (T, error)) (bool, *Write, error) {
	found := false
	w, err := c.Mutate("update", func(items []T) ([]T, error) {
		for i := range items {
			if c.ident.ID(items[i]) != id {
				continue
			}
			next, err := fn(items[i])
			if err != nil {
				return nil, err
			}
			items[i] = c.ident.WithID(next, id)
			found = true
		}
		return items, nil
	})
	return found, w, err
}

func (c *Collection[T]) Delete(id string) (*Write, error) {
	return c.Mutate("delete", func(items []T) ([]T, error) {
		out := items[:0]
		for _, it := range items {
			if c.ident.ID(it) != id {
				out = append(out, it)
			}
		}
		return out, nil
	})
}

func (c *Collection[T]) ReplaceAll(records []T) (*Write, error) {
	records = cloneItems(records)
	return c.Mutate("replace_all", func([]T) ([]T, error) {
		return records, nil
	})
}

// PrependAll is the bulk import path: records without an id get one and the
// batch is placed ahead of the existing records in the given order.
func (c *Collection[T]) PrependAll(records []T) ([]T, *Write, error) {
	batch := cloneItems(records)
	if c.ident.Prefix != "" {
		for i := range batch {
			if c.ident.ID(batch[i]) == "" {
				batch[i] = c.ident.WithID(batch[i], c.ids.Next(c.ident.Prefix))
			}
		}
	}
	w, err := c.Mutate("import", func(items []T) ([]T, error) {
		return append(cloneItems(batch), items...), nil
	})
	return batch, w, err
}

func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.items)
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if c.ident.ID(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Revision is the last confirmed remote revision.
func (c *Collection[T]) Revision() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmedRev
}

// Pending counts queued and in-flight writes.
func (c *Collection[T]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.queue)
	if c.inflight != nil {
		n++
	}
	return n
}

func (c *Collection[T]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Collection[T]) run() {
	defer close(c.workerDone)
	for {
		if pw, expected, ok := c.next(); ok {
			rev, attempts, err := c.put(pw, expected)
			c.finish(pw, rev, attempts, err)
			continue
		}
		select {
		case <-c.wake:
		case <-c.stop:
			if c.Pending() > 0 {
				continue
			}
			return
		}
	}
}

func (c *Collection[T]) next() (*pendingWrite[T], int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil, 0, false
	}
	pw := c.queue[0]
	c.queue = c.queue[1:]
	c.inflight = pw

	expected := pw.base
	if pw.chained {
		expected = c.lastOwnRev
	}
	if !c.opts.StrictWrites {
		expected = docstore.AnyRevision
	}
	return pw, expected, true
}

func (c *Collection[T]) put(pw *pendingWrite[T], expected int64) (int64, int, error) {
	backoff := c.opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(c.workCtx, c.opts.WriteTimeout)
		rev, err := c.remote.Put(ctx, c.name, pw.payload, expected)
		cancel()
		if err == nil {
			return rev, attempt, nil
		}
		if errors.Is(err, docstore.ErrConflict) || attempt > c.opts.WriteRetries || c.workCtx.Err() != nil {
			return 0, attempt, err
		}

		c.logger.Warn("remote write failed, retrying", "write_id", pw.write.ID, "attempt", attempt, "error", err)
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-c.workCtx.Done():
			timer.Stop()
			return 0, attempt, err
		}
		backoff *= 2
		if backoff > c.opts.MaxBackoff {
			backoff = c.opts.MaxBackoff
		}
	}
}

func (c *Collection[T]) finish(pw *pendingWrite[T], rev int64, attempts int, err error) {
	now := c.opts.Now()

	c.mu.Lock()
	c.inflight = nil

	if err == nil {
		c.lastOwnRev = rev
		if !c.haveBaseline || rev >= c.confirmedRev {
			c.confirmed = pw.items
			c.confirmedRev = rev
			c.haveBaseline = true
		}
		pw.write.resolve(WriteConfirmed, rev, attempts, nil)
		c.mu.Unlock()

		c.logger.Debug("remote write confirmed", "write_id", pw.write.ID, "op", pw.write.Op, "revision", rev)
		c.opts.Observer.WriteFinished(WriteReport{
			WriteID:    pw.write.ID,
			Collection: c.name,
			Op:         pw.write.Op,
			Status:     WriteConfirmed,
			Revision:   rev,
			Attempts:   attempts,
			Size:       len(pw.items),
			At:         now,
		})
		return
	}

	status := WriteFailed
	kind := NoticeWriteFailed
	if errors.Is(err, docstore.ErrConflict) {
		status = WriteConflict
		kind = NoticeWriteConflict
	}
	err = fmt.Errorf("failed to write %s: %w", c.name, err)

	c.lastErr = err
	c.items = cloneItems(c.confirmed)
	if payload, encErr := encodeItems(c.confirmed); encErr == nil {
		c.writeCacheLocked(payload)
	}
	dropped := c.queue
	c.queue = nil

	pw.write.resolve(status, 0, attempts, err)
	rollbackErr := fmt.Errorf("%w: %v", ErrRolledBack, err)
	for _, q := range dropped {
		q.write.resolve(WriteRolledBack, 0, 0, rollbackErr)
	}
	size := len(c.items)
	c.mu.Unlock()

	c.logger.Error("remote write failed, reverted to last confirmed snapshot",
		"write_id", pw.write.ID,
		"op", pw.write.Op,
		"status", status.String(),
		"attempts", attempts,
		"rolled_back", len(dropped),
		"error", err,
	)

	c.opts.Observer.WriteFinished(WriteReport{
		WriteID:    pw.write.ID,
		Collection: c.name,
		Op:         pw.write.Op,
		Status:     status,
		Attempts:   attempts,
		Size:       size,
		Err:        err,
		At:         now,
	})
	for _, q := range dropped {
		c.opts.Observer.WriteFinished(WriteReport{
			WriteID:    q.write.ID,
			Collection: c.name,
			Op:         q.write.Op,
			Status:     WriteRolledBack,
			Size:       size,
			Err:        rollbackErr,
			At:         now,
		})
	}

	msg := err.Error()
	if len(dropped) > 0 {
		msg = fmt.Sprintf("%s (%d queued changes discarded)", msg, len(dropped))
	}
	c.opts.Notifier.Notify(Notification{
		Collection: c.name,
		Kind:       kind,
		Message:    msg,
		At:         now,
	})
}

// Close detaches the listener and rejects further mutations. Queued writes
// are drained until ctx is done; anything still pending then is abandoned.
func (c *Collection[T]) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return nil
	}
	c.state = StateTornDown
	c.subGen++
	cancel := c.cancelSub
	c.cancelSub = nil
	subCancel := c.subCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if subCancel != nil {
		subCancel()
	}
	close(c.stop)

	select {
	case <-c.workerDone:
		c.workCancel()
		return nil
	case <-ctx.Done():
		c.workCancel()
		<-c.workerDone
		return fmt.Errorf("failed to drain %s writes: %w", c.name, ctx.Err())
	}
}
