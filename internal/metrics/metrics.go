// Package metrics exposes Prometheus collectors for catalog lookups,
// verification outcomes and relay traffic.
//
// All methods are safe to call on a nil *Metrics, so components can take
// metrics as an optional dependency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bibcheck"

// Lookup outcomes.
const (
	OutcomeMatch   = "match"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	entries        *prometheus.CounterVec
	relayRequests  *prometheus.CounterVec
	relayDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "lookups_total",
			Help:      "Catalog lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		lookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "lookup_duration_seconds",
			Help:      "Catalog lookup latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "entries_total",
			Help:      "Verified entries by final status.",
		}, []string{"status"}),
		relayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Relay requests by route and response status.",
		}, []string{"route", "status"}),
		relayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "request_duration_seconds",
			Help:      "Relay request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(m.lookups, m.lookupDuration, m.entries, m.relayRequests, m.relayDuration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLookup records one provider call.
func (m *Metrics) ObserveLookup(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.lookupDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// ObserveEntry records the final status of one verified entry.
func (m *Metrics) ObserveEntry(status string) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(status).Inc()
}

// ObserveRelay records one relay request.
func (m *Metrics) ObserveRelay(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.relayRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.relayDuration.WithLabelValues(route).Observe(d.Seconds())
}

// WriteTextfile writes the current values to path in the text exposition
// format, for a node_exporter textfile collector. The file is replaced
// atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
