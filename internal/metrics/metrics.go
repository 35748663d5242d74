// Package metrics exposes Prometheus counters for governance activity.
//
// Counters live on a private registry: the control plane serves no HTTP
// exporter (the network surface is an external collaborator), but the
// doctor's full report snapshots the registry so operators can read the
// numbers without one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrz1836/warden/internal/constants"
)

// Metrics holds the control plane's counters.
type Metrics struct {
	registry *prometheus.Registry

	// Transitions counts applied lifecycle transitions by event.
	Transitions *prometheus.CounterVec

	// Commits counts DCL commits appended.
	Commits prometheus.Counter

	// VerifyFailures counts verification failures observed.
	VerifyFailures prometheus.Counter
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_transitions_total",
			Help: "Lifecycle transitions applied, by event.",
		}, []string{"event"}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_commits_total",
			Help: "DCL commits appended.",
		}),
		VerifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_verify_failures_total",
			Help: "Verification failures observed.",
		}),
	}
	m.registry.MustRegister(m.Transitions, m.Commits, m.VerifyFailures)
	return m
}

// RecordTransition increments the transition counter for event.
func (m *Metrics) RecordTransition(event constants.LifecycleEvent) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(string(event)).Inc()
}

// RecordCommit increments the commit counter.
func (m *Metrics) RecordCommit() {
	if m == nil {
		return
	}
	m.Commits.Inc()
}

// RecordVerifyFailure increments the verification failure counter.
func (m *Metrics) RecordVerifyFailure() {
	if m == nil {
		return
	}
	m.VerifyFailures.Inc()
}

// Snapshot gathers the registry into a name→value map for reports.
func (m *Metrics) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	if m == nil {
		return out
	}
	families, err := m.registry.Gather()
	if err != nil {
		return out
	}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			name := fam.GetName()
			for _, label := range metric.GetLabel() {
				name += "{" + label.GetName() + "=" + label.GetValue() + "}"
			}
			if c := metric.GetCounter(); c != nil {
				out[name] = c.GetValue()
			}
		}
	}
	return out
}
