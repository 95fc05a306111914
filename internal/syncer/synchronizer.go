package syncer

import (
	"context"
	"errors"

	"github.com/vbonduro/pharmaflow/internal/cache"
	"github.com/vbonduro/pharmaflow/internal/docstore"
	"github.com/vbonduro/pharmaflow/internal/domain"
)

// Synchronizer owns the five application collections.
type Synchronizer struct {
	Orders    *Collection[domain.Order]
	Inventory *Collection[domain.InventoryItem]
	Customers *Collection[domain.Customer]
	Employees *Collection[domain.Employee]
	History   *Collection[domain.RequirementHistoryEntry]

	ids *IDSource
}

// CollectionStatus is a point-in-time view of one collection.
type CollectionStatus struct {
	Name      string `json:"name"`
	State     State  `json:"state"`
	Revision  int64  `json:"revision"`
	Size      int    `json:"size"`
	Pending   int    `json:"pending"`
	LastError string `json:"lastError,omitempty"`
}

type collection interface {
	Name() string
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	State() State
	Revision() int64
	Pending() int
	LastError() error
	size() int
}

func (c *Collection[T]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func New(remote docstore.Store, c cache.Cache, opts Options) *Synchronizer {
	opts = opts.withDefaults()
	ids := NewIDSource(opts.Now)

	return &Synchronizer{
		Orders: NewCollection(domain.CollectionOrders, Identity[domain.Order]{
			Prefix: "o",
			ID:     func(o domain.Order) string { return o.ID },
			WithID: func(o domain.Order, id string) domain.Order { o.ID = id; return o },
		}, remote, c, ids, opts),
		Inventory: NewCollection(domain.CollectionInventory, Identity[domain.InventoryItem]{
			Prefix: "item",
			ID:     func(i domain.InventoryItem) string { return i.ID },
			WithID: func(i domain.InventoryItem, id string) domain.InventoryItem { i.ID = id; return i },
		}, remote, c, ids, opts),
		Customers: NewCollection(domain.CollectionCustomers, Identity[domain.Customer]{
			Prefix: "c",
			ID:     func(cu domain.Customer) string { return cu.ID },
			WithID: func(cu domain.Customer, id string) domain.Customer { cu.ID = id; return cu },
		}, remote, c, ids, opts),
		Employees: NewCollection(domain.CollectionEmployees, Identity[domain.Employee]{
			Prefix: "e",
			ID:     func(e domain.Employee) string { return e.ID },
			WithID: func(e domain.Employee, id string) domain.Employee { e.ID = id; return e },
		}, remote, c, ids, opts),
		History: NewCollection(domain.CollectionRequirementHistory, Identity[domain.RequirementHistoryEntry]{
			ID: func(h domain.RequirementHistoryEntry) string { return h.OrderID },
			WithID: func(h domain.RequirementHistoryEntry, id string) domain.RequirementHistoryEntry {
				h.OrderID = id
				return h
			},
		}, remote, c, ids, opts),
		ids: ids,
	}
}

func (s *Synchronizer) all() []collection {
	return []collection{s.Orders, s.Inventory, s.Customers, s.Employees, s.History}
}

// Open subscribes every collection.
func (s *Synchronizer) Open(ctx context.Context) error {
	for _, c := range s.all() {
		if err := c.Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down every collection, draining queued writes until ctx is done.
func (s *Synchronizer) Close(ctx context.Context) error {
	var errs []error
	for _, c := range s.all() {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Synchronizer) Status() []CollectionStatus {
	out := make([]CollectionStatus, 0, 5)
	for _, c := range s.all() {
		st := CollectionStatus{
			Name:     c.Name(),
			State:    c.State(),
			Revision: c.Revision(),
			Size:     c.size(),
			Pending:  c.Pending(),
		}
		if err := c.LastError(); err != nil {
			st.LastError = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Synced reports whether every collection has received a remote snapshot
// and is currently subscribed.
func (s *Synchronizer) Synced() bool {
	for _, c := range s.all() {
		if c.State() != StateSynced {
			return false
		}
	}
	return true
}
