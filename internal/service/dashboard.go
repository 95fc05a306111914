package service

import (
	"sort"
	"time"

	"github.com/vbonduro/pharmaflow/internal/domain"
)

type Urgency string

const (
	UrgencyNone    Urgency = "none"
	UrgencyOK      Urgency = "ok"
	UrgencySoon    Urgency = "soon"
	UrgencyOverdue Urgency = "overdue"

	SoonWindow = 6 * time.Hour
)

// DeadlineUrgency classifies how close deadline is to now.
func DeadlineUrgency(deadline *time.Time, now time.Time) Urgency {
	if deadline == nil {
		return UrgencyNone
	}
	left := deadline.Sub(now)
	switch {
	case left <= 0:
		return UrgencyOverdue
	case left <= SoonWindow:
		return UrgencySoon
	default:
		return UrgencyOK
	}
}

type DashboardOrder struct {
	Order   domain.Order `json:"order"`
	Urgency Urgency      `json:"urgency"`
}

type Dashboard struct {
	Pending   []DashboardOrder `json:"pending"`
	Delivered []DashboardOrder `json:"delivered"`
}

// Dashboard lists orders newest first, split into open and delivered. Unless
// fullHistory is set only orders created on now's calendar day are included.
func (s *Service) Dashboard(now time.Time, fullHistory bool) Dashboard {
	orders := s.orders.Items()
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	now = now.In(s.loc)
	y, m, d := now.Date()

	dash := Dashboard{Pending: []DashboardOrder{}, Delivered: []DashboardOrder{}}
	for _, o := range orders {
		if !fullHistory {
			oy, om, od := o.CreatedAt.In(s.loc).Date()
			if oy != y || om != m || od != d {
				continue
			}
		}
		entry := DashboardOrder{Order: o, Urgency: DeadlineUrgency(o.Deadline, now)}
		if o.Delivered() {
			dash.Delivered = append(dash.Delivered, entry)
		} else {
			dash.Pending = append(dash.Pending, entry)
		}
	}
	return dash
}

// OpenOrdersByUrgency counts undelivered orders per urgency.
func (s *Service) OpenOrdersByUrgency(now time.Time) map[Urgency]int {
	counts := map[Urgency]int{UrgencyNone: 0, UrgencyOK: 0, UrgencySoon: 0, UrgencyOverdue: 0}
	for _, o := range s.orders.Items() {
		if o.Delivered() {
			continue
		}
		counts[DeadlineUrgency(o.Deadline, now)]++
	}
	return counts
}

// OverdueOrders returns undelivered orders whose deadline has passed.
func (s *Service) OverdueOrders(now time.Time) []domain.Order {
	var out []domain.Order
	for _, o := range s.orders.Items() {
		if !o.Delivered() && DeadlineUrgency(o.Deadline, now) == UrgencyOverdue {
			out = append(out, o)
		}
	}
	return out
}
