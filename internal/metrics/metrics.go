package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/limshub/vessel-queue/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	Enqueued          *prometheus.CounterVec
	DuplicatesSkipped *prometheus.CounterVec
	Completed         *prometheus.CounterVec
	Excluded          *prometheus.CounterVec
	Reorders          *prometheus.CounterVec

	// Routed and Unrouted track the post-dequeue routing decisions. Unrouted
	// makes the silent no-op on unrecognized product types observable.
	Routed   *prometheus.CounterVec
	Unrouted *prometheus.CounterVec

	DepthGroupings *prometheus.GaugeVec
	DepthEntries   *prometheus.GaugeVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_enqueued_total",
			Help: "Total vessels enqueued, by queue type and origin.",
		}, []string{"queue_type", "origin"}),

		DuplicatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_duplicates_skipped_total",
			Help: "Vessels skipped at enqueue because an active entry already existed.",
		}, []string{"queue_type"}),

		Completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_completed_total",
			Help: "Entries marked completed, by queue type.",
		}, []string{"queue_type"}),

		Excluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_excluded_total",
			Help: "Entries excluded from active consideration, by queue type.",
		}, []string{"queue_type"}),

		Reorders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_reorders_total",
			Help: "Priority moves, by queue type and kind (top, bottom, position).",
		}, []string{"queue_type", "kind"}),

		Routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_routing_routed_total",
			Help: "Completed vessels routed onward into another queue.",
		}, []string{"queue_type", "target"}),

		Unrouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_routing_unrouted_total",
			Help: "Completed vessels the routing handler could not place (absent or unrecognized product type).",
		}, []string{"queue_type", "product_type"}),

		DepthGroupings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_depth_groupings",
			Help: "Active and repeat groupings currently in the queue order.",
		}, []string{"queue_type"}),

		DepthEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_depth_entries",
			Help: "Active entries currently awaiting processing.",
		}, []string{"queue_type"}),
	}

	reg.MustRegister(
		m.Enqueued,
		m.DuplicatesSkipped,
		m.Completed,
		m.Excluded,
		m.Reorders,
		m.Routed,
		m.Unrouted,
		m.DepthGroupings,
		m.DepthEntries,
	)

	return m
}

// SetDepths publishes one queue's depth readout; called by the depth poller.
func (m *Metrics) SetDepths(c domain.QueueCounts) {
	m.DepthGroupings.WithLabelValues(string(c.QueueType)).Set(float64(c.ActiveGroupings))
	m.DepthEntries.WithLabelValues(string(c.QueueType)).Set(float64(c.ActiveEntries))
}
