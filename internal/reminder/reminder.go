// Package reminder periodically sweeps open orders for approaching and
// missed deadlines.
package reminder

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/service"
)

type OrderSource interface {
	Now() time.Time
	OpenOrdersByUrgency(now time.Time) map[service.Urgency]int
	OverdueOrders(now time.Time) []domain.Order
}

type Gauge interface {
	SetOpenOrders(byUrgency map[string]int)
}

type Reminder struct {
	orders OrderSource
	gauge  Gauge
	logger *slog.Logger
	sched  *gocron.Scheduler

	mu      sync.Mutex
	overdue map[string]bool // ids already reported
}

func New(orders OrderSource, gauge Gauge, loc *time.Location, interval time.Duration, logger *slog.Logger) (*Reminder, error) {
	if loc == nil {
		loc = time.Local
	}
	r := &Reminder{
		orders:  orders,
		gauge:   gauge,
		logger:  logger,
		sched:   gocron.NewScheduler(loc),
		overdue: make(map[string]bool),
	}
	if _, err := r.sched.Every(interval).SingletonMode().Do(func() { r.Sweep() }); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}
	return r, nil
}

func (r *Reminder) Start() { r.sched.StartAsync() }

func (r *Reminder) Stop() { r.sched.Stop() }

// Sweep updates the gauge and logs each order the first time it is seen
// overdue. It returns the ids that became overdue in this sweep.
func (r *Reminder) Sweep() []string {
	now := r.orders.Now()

	counts := r.orders.OpenOrdersByUrgency(now)
	if r.gauge != nil {
		byName := make(map[string]int, len(counts))
		for u, n := range counts {
			byName[string(u)] = n
		}
		r.gauge.SetOpenOrders(byName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]bool)
	var fresh []string
	for _, o := range r.orders.OverdueOrders(now) {
		current[o.ID] = true
		if r.overdue[o.ID] {
			continue
		}
		fresh = append(fresh, o.ID)
		r.logger.Warn("order overdue",
			"order_id", o.ID,
			"customer", o.CustomerName,
			"deadline", o.Deadline,
			"status", o.Status.String(),
		)
	}
	r.overdue = current

	if len(fresh) > 0 || counts[service.UrgencySoon] > 0 {
		r.logger.Info("reminder sweep",
			"overdue", counts[service.UrgencyOverdue],
			"due_soon", counts[service.UrgencySoon],
			"newly_overdue", len(fresh),
		)
	}
	return fresh
}
