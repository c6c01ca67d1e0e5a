// Package telemetry exposes the run's provider counters both as
// Prometheus collectors and as a snapshot the artifact embeds.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CallStats accumulates per-provider outcomes.
type CallStats struct {
	Calls     int
	Successes int
	Rotations int
}

// SuccessRate returns successes over calls, zero when idle.
func (c CallStats) SuccessRate() float64 {
	if c.Calls == 0 {
		return 0
	}
	return float64(c.Successes) / float64(c.Calls)
}

// Metrics implements provider.Recorder backed by Prometheus counters plus
// an in-memory snapshot for the artifact statistics.
type Metrics struct {
	calls     *prometheus.CounterVec
	failures  *prometheus.CounterVec
	rotations *prometheus.CounterVec
	latency   *prometheus.HistogramVec

	mu    sync.Mutex
	stats map[string]*CallStats
}

// New registers the collectors on reg (use prometheus.NewRegistry for
// isolated instances in tests).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "garimpo_provider_calls_total",
			Help: "API calls dispatched per provider.",
		}, []string{"provider", "outcome"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "garimpo_provider_failures_total",
			Help: "Failed API calls per provider.",
		}, []string{"provider"}),
		rotations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "garimpo_key_rotations_total",
			Help: "Credential rotations per provider.",
		}, []string{"provider"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "garimpo_provider_latency_seconds",
			Help:    "Latency of provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		stats: make(map[string]*CallStats),
	}
}

// RecordCall implements provider.Recorder.
func (m *Metrics) RecordCall(provider string, ok bool, took time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "failure"
		m.failures.WithLabelValues(provider).Inc()
	}
	m.calls.WithLabelValues(provider, outcome).Inc()
	m.latency.WithLabelValues(provider).Observe(took.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.statsLocked(provider)
	s.Calls++
	if ok {
		s.Successes++
	}
}

// RecordRotation implements provider.Recorder.
func (m *Metrics) RecordRotation(provider string) {
	m.rotations.WithLabelValues(provider).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsLocked(provider).Rotations++
}

func (m *Metrics) statsLocked(provider string) *CallStats {
	s := m.stats[provider]
	if s == nil {
		s = &CallStats{}
		m.stats[provider] = s
	}
	return s
}

// Snapshot returns a copy of the per-provider counters.
func (m *Metrics) Snapshot() map[string]CallStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]CallStats, len(m.stats))
	for name, s := range m.stats {
		out[name] = *s
	}
	return out
}
