package web

import (
	"net/http"
	"sync"

	"github.com/vbonduro/pharmaflow/internal/syncer"
)

const DefaultAlertCapacity = 100

// Alerts keeps the most recent sync failure notifications for the UI.
type Alerts struct {
	mu    sync.Mutex
	buf   []syncer.Notification
	next  int
	full  bool
	total int
}

func NewAlerts(capacity int) *Alerts {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &Alerts{buf: make([]syncer.Notification, capacity)}
}

func (a *Alerts) Notify(n syncer.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf[a.next] = n
	a.next = (a.next + 1) % len(a.buf)
	if a.next == 0 {
		a.full = true
	}
	a.total++
}

// Recent returns up to limit notifications, newest first. limit <= 0 means all.
func (a *Alerts) Recent(limit int) []syncer.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.next
	if a.full {
		n = len(a.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]syncer.Notification, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, a.buf[(a.next-i+len(a.buf))%len(a.buf)])
	}
	return out
}

// Total counts every notification received, including evicted ones.
func (a *Alerts) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": s.alerts.Recent(limit),
		"total":  s.alerts.Total(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"synced":      s.status.Synced(),
		"collections": s.status.Status(),
	})
}
