// Package metrics exposes job lifecycle counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sumire/homestead/internal/domain"
)

// Metrics holds the job counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Started    *prometheus.CounterVec
	Collected  *prometheus.CounterVec
	Cancelled  *prometheus.CounterVec
	Rejections *prometheus.CounterVec
}

// New registers the counters, plus Go runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_started_total",
			Help: "Jobs started, by kind.",
		}, []string{"kind"}),
		Collected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_collected_total",
			Help: "Jobs collected, by kind.",
		}, []string{"kind"}),
		Cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_cancelled_total",
			Help: "Jobs cancelled, by kind.",
		}, []string{"kind"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_start_rejections_total",
			Help: "Start requests rejected by a precondition, by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Started, m.Collected, m.Cancelled, m.Rejections,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobStarted counts a started job of kind.
func (m *Metrics) JobStarted(kind domain.JobKind) {
	if m != nil {
		m.Started.WithLabelValues(string(kind)).Inc()
	}
}

// JobCollected counts a collected job of kind.
func (m *Metrics) JobCollected(kind domain.JobKind) {
	if m != nil {
		m.Collected.WithLabelValues(string(kind)).Inc()
	}
}

// JobCancelled counts a cancelled job of kind.
func (m *Metrics) JobCancelled(kind domain.JobKind) {
	if m != nil {
		m.Cancelled.WithLabelValues(string(kind)).Inc()
	}
}

// StartRejected counts a rejected start under a short reason label.
func (m *Metrics) StartRejected(reason string) {
	if m != nil {
		m.Rejections.WithLabelValues(reason).Inc()
	}
}
