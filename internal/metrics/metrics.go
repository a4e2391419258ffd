// Package metrics exposes Prometheus-compatible counters and gauges for the
// task list hub: operation throughput, checkpoint cadence, session
// lifecycle, and broadcast health.
//
// Metrics exposed (all namespaced with "tasklisthub_"):
//
//  1. operations_applied_total (counter): Operations successfully applied to
//     a cell's snapshot. Labels: none.
//  2. checkpoints_created_total (counter): Checkpoints written by the
//     registry's cold-load path. Labels: none.
//  3. sessions_joined_total / sessions_closed_total (counters): Session
//     lifecycle transitions.
//  4. broadcast_lagged_total (counter): Subscriber channel overflow events
//     (a slow reader missed an operation and received Lagged instead).
//  5. active_cells (gauge): Number of per-user cells currently resident.
//  6. active_sessions (gauge): Number of sessions currently in the Joined
//     phase.
//
// All metrics are registered against the Prometheus registry passed to New;
// pass prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the hub's Prometheus metrics collector.
type Metrics struct {
	operationsApplied prometheus.Counter
	checkpointsCreated prometheus.Counter
	sessionsJoined     prometheus.Counter
	sessionsClosed     prometheus.Counter
	broadcastLagged    prometheus.Counter

	activeCells    prometheus.Gauge
	activeSessions prometheus.Gauge
}

// New creates and registers all hub metrics with registry. A nil registry
// falls back to prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		operationsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tasklisthub",
			Name:      "operations_applied_total",
			Help:      "Operations successfully applied to a user's task list snapshot",
		}),
		checkpointsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tasklisthub",
			Name:      "checkpoints_created_total",
			Help:      "Checkpoints written during cell cold-load",
		}),
		sessionsJoined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tasklisthub",
			Name:      "sessions_joined_total",
			Help:      "Sessions that completed handshake and joined a cell",
		}),
		sessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tasklisthub",
			Name:      "sessions_closed_total",
			Help:      "Sessions that have closed, for any reason",
		}),
		broadcastLagged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tasklisthub",
			Name:      "broadcast_lagged_total",
			Help:      "Times a subscriber's channel was full and received a lag marker instead of an operation",
		}),
		activeCells: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tasklisthub",
			Name:      "active_cells",
			Help:      "Number of per-user cells currently resident in memory",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tasklisthub",
			Name:      "active_sessions",
			Help:      "Number of sessions currently in the Joined phase",
		}),
	}
}

// OperationApplied increments operations_applied_total.
func (m *Metrics) OperationApplied() { m.operationsApplied.Inc() }

// CheckpointCreated increments checkpoints_created_total.
func (m *Metrics) CheckpointCreated() { m.checkpointsCreated.Inc() }

// SessionJoined increments sessions_joined_total and active_sessions.
func (m *Metrics) SessionJoined() {
	m.sessionsJoined.Inc()
	m.activeSessions.Inc()
}

// SessionClosed increments sessions_closed_total only. It leaves
// active_sessions alone, so it is safe to call for a session that closed
// before completing handshake; SessionLeft is what decrements the gauge.
func (m *Metrics) SessionClosed() { m.sessionsClosed.Inc() }

// SessionLeft decrements active_sessions for a session that had previously
// joined.
func (m *Metrics) SessionLeft() { m.activeSessions.Dec() }

// BroadcastLagged increments broadcast_lagged_total.
func (m *Metrics) BroadcastLagged() { m.broadcastLagged.Inc() }

// SetActiveCells sets the active_cells gauge to count.
func (m *Metrics) SetActiveCells(count int) { m.activeCells.Set(float64(count)) }
