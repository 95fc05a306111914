package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
)

// repository is the subset of syncer.Collection the service needs.
type repository[T any] interface {
	Items() []T
	Get(id string) (T, bool)
	Add(rec T) (T, *syncer.Write, error)
	Update(id string, rec T) (*syncer.Write, error)
	Modify(id string, fn func(T) (T, error)) (bool, *syncer.Write, error)
	Delete(id string) (*syncer.Write, error)
	PrependAll(records []T) ([]T, *syncer.Write, error)
	Mutate(op string, fn func([]T) ([]T, error)) (*syncer.Write, error)
}

type Service struct {
	orders    repository[domain.Order]
	inventory repository[domain.InventoryItem]
	customers repository[domain.Customer]
	employees repository[domain.Employee]
	history   repository[domain.RequirementHistoryEntry]
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

func New(s *syncer.Synchronizer, loc *time.Location, logger *slog.Logger) *Service {
	return NewService(s.Orders, s.Inventory, s.Customers, s.Employees, s.History, loc, logger)
}

func NewService(
	orders repository[domain.Order],
	inventory repository[domain.InventoryItem],
	customers repository[domain.Customer],
	employees repository[domain.Employee],
	history repository[domain.RequirementHistoryEntry],
	loc *time.Location,
	logger *slog.Logger,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		orders:    orders,
		inventory: inventory,
		customers: customers,
		employees: employees,
		history:   history,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// Now is the service clock in the configured time zone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// modify runs fn against an existing record and maps a missing id to
// ErrNotFound.
func modify[T any](repo repository[T], id string, fn func(T) (T, error)) (T, *syncer.Write, error) {
	var zero T
	if _, ok := repo.Get(id); !ok {
		return zero, nil, ErrNotFound
	}
	var updated T
	found, w, err := repo.Modify(id, func(cur T) (T, error) {
		next, err := fn(cur)
		updated = next
		return next, err
	})
	if err != nil {
		return zero, nil, err
	}
	if !found {
		return zero, w, ErrNotFound
	}
	return updated, w, nil
}

func remove[T any](repo repository[T], id string) (*syncer.Write, error) {
	if _, ok := repo.Get(id); !ok {
		return nil, ErrNotFound
	}
	return repo.Delete(id)
}
