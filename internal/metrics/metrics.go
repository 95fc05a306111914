package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/pharmaflow/internal/syncer"
)

// Registry holds the pharmaflow collectors and implements syncer.Observer.
type Registry struct {
	reg                  *prometheus.Registry
	SnapshotsApplied     *prometheus.CounterVec
	CollectionSize       *prometheus.GaugeVec
	CollectionRevision   *prometheus.GaugeVec
	WritesFinished       *prometheus.CounterVec
	WriteAttempts        prometheus.Histogram
	SubscriptionFailures *prometheus.CounterVec
	OpenOrders           *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	snapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmaflow_snapshots_applied_total",
		Help: "Remote snapshots applied per collection.",
	}, []string{"collection"})
	size := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pharmaflow_collection_records",
		Help: "Records in the last applied snapshot.",
	}, []string{"collection"})
	revision := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pharmaflow_collection_revision",
		Help: "Revision of the last applied snapshot.",
	}, []string{"collection"})
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmaflow_writes_total",
		Help: "Completed writes by outcome.",
	}, []string{"collection", "status"})
	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pharmaflow_write_attempts",
		Help:    "Store attempts used per write.",
		Buckets: []float64{1, 2, 3, 5, 8},
	})
	subFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmaflow_subscription_failures_total",
		Help: "Subscription errors per collection.",
	}, []string{"collection"})
	open := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pharmaflow_open_orders",
		Help: "Undelivered orders by deadline urgency.",
	}, []string{"urgency"})

	r.MustRegister(snapshots, size, revision, writes, attempts, subFailures, open)
	return &Registry{
		reg:                  r,
		SnapshotsApplied:     snapshots,
		CollectionSize:       size,
		CollectionRevision:   revision,
		WritesFinished:       writes,
		WriteAttempts:        attempts,
		SubscriptionFailures: subFailures,
		OpenOrders:           open,
	}
}

func (r *Registry) SnapshotApplied(collection string, size int, rev int64) {
	r.SnapshotsApplied.WithLabelValues(collection).Inc()
	r.CollectionSize.WithLabelValues(collection).Set(float64(size))
	r.CollectionRevision.WithLabelValues(collection).Set(float64(rev))
}

func (r *Registry) WriteFinished(rep syncer.WriteReport) {
	r.WritesFinished.WithLabelValues(rep.Collection, rep.Status.String()).Inc()
	// Rolled back writes never reached the store.
	if rep.Attempts > 0 {
		r.WriteAttempts.Observe(float64(rep.Attempts))
	}
}

func (r *Registry) SubscriptionFailed(collection string, _ error) {
	r.SubscriptionFailures.WithLabelValues(collection).Inc()
}

// SetOpenOrders replaces the open-order gauge with the given counts.
func (r *Registry) SetOpenOrders(byUrgency map[string]int) {
	r.OpenOrders.Reset()
	for urgency, n := range byUrgency {
		r.OpenOrders.WithLabelValues(urgency).Set(float64(n))
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
