// Package metrics defines the Prometheus metrics exported by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scriptnav"

// Reload results.
const (
	ReloadOK     = "ok"
	ReloadFailed = "failed"
)

// Metrics holds every collector the server updates.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Edits counts edits applied to any document.
	Edits prometheus.Counter

	// Consolidations counts version cache consolidations.
	Consolidations prometheus.Counter

	// Reloads counts reloads by result (ok, failed).
	Reloads *prometheus.CounterVec

	// Commands counts session commands by command and result.
	Commands *prometheus.CounterVec

	// CommandDuration measures session command latency.
	CommandDuration *prometheus.HistogramVec

	// Cancellations counts long operations that ended cancelled.
	Cancellations prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		Edits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Total edits applied to open documents",
		}),
		Consolidations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consolidations_total",
			Help:      "Total version cache consolidations",
		}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Total document reloads by result",
		}, []string{"result"}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total session commands by command and result",
		}, []string{"command", "result"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Session command latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"command"}),
		Cancellations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Total long operations that ended cancelled",
		}),
		gatherer: reg,
	}
}

// Handler serves the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// IncEdits records one edit.
func (m *Metrics) IncEdits() {
	if m != nil {
		m.Edits.Inc()
	}
}

// IncConsolidations records one consolidation.
func (m *Metrics) IncConsolidations() {
	if m != nil {
		m.Consolidations.Inc()
	}
}

// ObserveReload records a reload result.
func (m *Metrics) ObserveReload(ok bool) {
	if m == nil {
		return
	}
	result := ReloadOK
	if !ok {
		result = ReloadFailed
	}
	m.Reloads.WithLabelValues(result).Inc()
}

// ObserveCommand records one session command.
func (m *Metrics) ObserveCommand(command, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, result).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(seconds)
}

// IncCancellations records one cancelled long operation.
func (m *Metrics) IncCancellations() {
	if m != nil {
		m.Cancellations.Inc()
	}
}
