package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// OrderStatus replaces the taken/delivered flag pair. Delivered implies picked.
type OrderStatus int

const (
	StatusPending OrderStatus = iota
	StatusPicked
	StatusDelivered
)

func (s OrderStatus) String() string {
	switch s {
	case StatusPicked:
		return "picked"
	case StatusDelivered:
		return "delivered"
	default:
		return "pending"
	}
}

// Taken is the legacy "taken" flag.
func (s OrderStatus) Taken() bool { return s >= StatusPicked }

// ParseOrderStatus accepts the current names, the capitalized strings older
// clients stored, and "taken" as an alias for picked.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "":
		return StatusPending, true
	case "picked", "taken":
		return StatusPicked, true
	case "delivered":
		return StatusDelivered, true
	default:
		return StatusPending, false
	}
}

func (s OrderStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *OrderStatus) UnmarshalText(b []byte) error {
	st, ok := ParseOrderStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown order status %q", string(b))
	}
	*s = st
	return nil
}

// Transition moves an order from one status to another. Any move is allowed
// except regressing a delivered order: delivery is final until it is
// explicitly reopened to picked, and going straight from delivered to pending
// would silently drop the "taken" fact.
func Transition(from, to OrderStatus) (OrderStatus, error) {
	if to < StatusPending || to > StatusDelivered {
		return from, fmt.Errorf("%w: unknown target %d", ErrInvalidTransition, to)
	}
	if from == StatusDelivered && to == StatusPending {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// ApplyFlag maps the original flag handlers onto the status machine.
// Setting delivered=true forces taken=true in the same step.
func ApplyFlag(from OrderStatus, field string, value bool) (OrderStatus, error) {
	switch field {
	case "delivered":
		if value {
			return Transition(from, StatusDelivered)
		}
		if from == StatusDelivered {
			return Transition(from, StatusPicked)
		}
		return from, nil
	case "taken":
		if value {
			if from == StatusDelivered {
				return from, nil
			}
			return Transition(from, StatusPicked)
		}
		return Transition(from, StatusPending)
	default:
		return from, fmt.Errorf("%w: unknown flag %q", ErrInvalidTransition, field)
	}
}
