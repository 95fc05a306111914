package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

var quantityPattern = regexp.MustCompile(`^[0-9.+]+$`)

// OrderDraft is the caller-editable part of an order.
type OrderDraft struct {
	CustomerName string             `json:"customerName"`
	Items        []domain.OrderItem `json:"items"`
	Deadline     *time.Time         `json:"deadline"`
}

func (d OrderDraft) validate() error {
	if strings.TrimSpace(d.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalid)
	}
	if len(d.Items) == 0 {
		return fmt.Errorf("%w: an order needs at least one item", ErrInvalid)
	}
	for i, it := range d.Items {
		if strings.TrimSpace(it.ItemName) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalid, i)
		}
		if !quantityPattern.MatchString(strings.TrimSpace(it.Quantity)) {
			return fmt.Errorf("%w: item %q has quantity %q", ErrInvalid, it.ItemName, it.Quantity)
		}
	}
	return nil
}

func cleanItems(items []domain.OrderItem) []domain.OrderItem {
	out := make([]domain.OrderItem, len(items))
	for i, it := range items {
		it.ItemName = strings.TrimSpace(it.ItemName)
		it.Quantity = strings.TrimSpace(it.Quantity)
		out[i] = it
	}
	return out
}

func (s *Service) Orders() []domain.Order {
	return s.orders.Items()
}

func (s *Service) Order(id string) (domain.Order, error) {
	o, ok := s.orders.Get(id)
	if !ok {
		return domain.Order{}, ErrNotFound
	}
	return o, nil
}

func (s *Service) PlaceOrder(d OrderDraft) (domain.Order, *syncer.Write, error) {
	if err := d.validate(); err != nil {
		return domain.Order{}, nil, err
	}
	order, w, err := s.orders.Add(domain.Order{
		CustomerName: strings.TrimSpace(d.CustomerName),
		Items:        cleanItems(d.Items),
		CreatedAt:    s.now().UTC(),
		Deadline:     d.Deadline,
		Status:       domain.StatusPending,
	})
	if err != nil {
		return domain.Order{}, nil, fmt.Errorf("failed to place order: %w", err)
	}
	s.logger.Info("order placed", "order_id", order.ID, "customer", order.CustomerName, "items", len(order.Items))
	return order, w, nil
}

// EditOrder replaces the customer and items and keeps everything else.
func (s *Service) EditOrder(id string, d OrderDraft) (domain.Order, *syncer.Write, error) {
	if err := d.validate(); err != nil {
		return domain.Order{}, nil, err
	}
	return modify(s.orders, id, func(o domain.Order) (domain.Order, error) {
		o.CustomerName = strings.TrimSpace(d.CustomerName)
		o.Items = cleanItems(d.Items)
		return o, nil
	})
}

func (s *Service) DeleteOrder(id string) (*syncer.Write, error) {
	w, err := remove(s.orders, id)
	if err == nil {
		s.logger.Info("order deleted", "order_id", id)
	}
	return w, err
}

func (s *Service) SetOrderStatus(id string, status domain.OrderStatus) (domain.Order, *syncer.Write, error) {
	return modify(s.orders, id, func(o domain.Order) (domain.Order, error) {
		next, err := domain.Transition(o.Status, status)
		if err != nil {
			return o, err
		}
		o.Status = next
		return o, nil
	})
}

// SetTaken and SetDelivered are the flag-style status handlers.
func (s *Service) SetTaken(id string, taken bool) (domain.Order, *syncer.Write, error) {
	return s.applyFlag(id, "taken", taken)
}

func (s *Service) SetDelivered(id string, delivered bool) (domain.Order, *syncer.Write, error) {
	return s.applyFlag(id, "delivered", delivered)
}

func (s *Service) applyFlag(id, field string, value bool) (domain.Order, *syncer.Write, error) {
	return modify(s.orders, id, func(o domain.Order) (domain.Order, error) {
		next, err := domain.ApplyFlag(o.Status, field, value)
		if err != nil {
			return o, err
		}
		o.Status = next
		return o, nil
	})
}

func (s *Service) ToggleItemHighlight(id string, index int) (domain.Order, *syncer.Write, error) {
	return modify(s.orders, id, func(o domain.Order) (domain.Order, error) {
		if index < 0 || index >= len(o.Items) {
			return o, fmt.Errorf("%w: item index %d out of range", ErrInvalid, index)
		}
		items := make([]domain.OrderItem, len(o.Items))
		copy(items, o.Items)
		items[index].IsHighlighted = !items[index].IsHighlighted
		o.Items = items
		return o, nil
	})
}

// SetDeadline sets or, with nil, clears the deadline.
func (s *Service) SetDeadline(id string, deadline *time.Time) (domain.Order, *syncer.Write, error) {
	return modify(s.orders, id, func(o domain.Order) (domain.Order, error) {
		if deadline != nil {
			d := deadline.UTC()
			o.Deadline = &d
		} else {
			o.Deadline = nil
		}
		return o, nil
	})
}

// OrderShareText renders an order for pasting into a chat message.
func (s *Service) OrderShareText(id string) (string, error) {
	o, ok := s.orders.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", o.CustomerName)
	b.WriteString(FormatDateTime(o.CreatedAt.In(s.loc)))
	b.WriteString("\n__________________________\n\n")
	for i, it := range o.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• %s - *%s %s*", it.ItemName, it.Quantity, it.UnitType)
	}
	return b.String(), nil
}

// FormatDateTime renders t as "19 Oct 2026 | 3:04 pm".
func FormatDateTime(t time.Time) string {
	return t.Format("02 Jan 2006 | 3:04 pm")
}
