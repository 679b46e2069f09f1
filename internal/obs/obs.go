// Package obs wires the node's event counters into Prometheus and
// provides the structured logger every other package logs through.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the package-level *logrus.Logger every component derives
// its component-scoped *logrus.Entry from (shell's `log.WithField("stage",
// ...)` pattern).
func NewLogger(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Metrics exports the node's event counters as Prometheus
// CounterVecs, registered lazily from whatever keys a Stats.All() snapshot
// names — the counter set is open-ended (one per opcode plus ad-hoc
// rejection/throttle counters), so a single labeled vec covers all of it
// rather than one static metric per name.
type Metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	lastSeen map[string]uint64
}

// NewMetrics creates a fresh registry holding the node's event counters.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "artnet",
		Name:      "events_total",
		Help:      "Count of node-runtime events by kind.",
	}, []string{"kind"})
	reg.MustRegister(events)
	return &Metrics{registry: reg, events: events, lastSeen: map[string]uint64{}}
}

// Registry exposes the underlying prometheus.Registry for /metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe updates every counter from a Stats.All()-shaped snapshot,
// translating monotonic totals into CounterVec.Add deltas since Prometheus
// counters only move forward via Add, never Set.
func (m *Metrics) Observe(counts map[string]uint64) {
	for kind, total := range counts {
		prev := m.lastSeen[kind]
		if total < prev {
			// Counter reset (e.g. node restart without process restart);
			// re-baseline rather than going backward.
			prev = 0
		}
		if delta := total - prev; delta > 0 {
			m.events.WithLabelValues(kind).Add(float64(delta))
		}
		m.lastSeen[kind] = total
	}
}
