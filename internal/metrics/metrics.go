// Package metrics holds the Prometheus collectors for the engine and the
// gateway. A single Metrics value is built at startup and handed to every
// component; a nil *Metrics disables recording, so library code never has
// to check whether metrics are wired.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the process registers.
type Metrics struct {
	registry *prometheus.Registry

	actionsTotal   *prometheus.CounterVec
	actionSeconds  *prometheus.HistogramVec
	triggersQueued prometheus.Counter
	gamesActive    prometheus.Gauge
	gamesTotal     prometheus.Counter
	clientsActive  prometheus.Gauge
}

// New builds and registers the collectors. A nil registry gets a fresh
// one, which Handler exposes.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "openduel",
				Subsystem: "engine",
				Name:      "actions_total",
				Help:      "Actions submitted to engines, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),

		actionSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "openduel",
				Subsystem: "engine",
				Name:      "action_seconds",
				Help:      "Time spent applying one action, including the settle loop.",
				Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
			},
			[]string{"kind"},
		),

		triggersQueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "openduel",
				Subsystem: "engine",
				Name:      "triggers_queued_total",
				Help:      "Triggered abilities detected and put on a stack.",
			},
		),

		gamesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "openduel",
				Subsystem: "engine",
				Name:      "games_active",
				Help:      "Games currently in progress.",
			},
		),

		gamesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "openduel",
				Subsystem: "engine",
				Name:      "games_total",
				Help:      "Games started since process start.",
			},
		),

		clientsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "openduel",
				Subsystem: "gateway",
				Name:      "clients_active",
				Help:      "WebSocket clients currently connected.",
			},
		),
	}

	registry.MustRegister(
		m.actionsTotal,
		m.actionSeconds,
		m.triggersQueued,
		m.gamesActive,
		m.gamesTotal,
		m.clientsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveAction records one submitted action and how it went. outcome is
// "applied" or "rejected".
func (m *Metrics) ObserveAction(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(kind, outcome).Inc()
	m.actionSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// TriggersQueued records n triggered abilities going onto a stack.
func (m *Metrics) TriggersQueued(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.triggersQueued.Add(float64(n))
}

// GameStarted bumps the active-games gauge and the lifetime counter.
func (m *Metrics) GameStarted() {
	if m == nil {
		return
	}
	m.gamesActive.Inc()
	m.gamesTotal.Inc()
}

// GameFinished drops the active-games gauge.
func (m *Metrics) GameFinished() {
	if m == nil {
		return
	}
	m.gamesActive.Dec()
}

// ClientConnected bumps the connected-clients gauge.
func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.clientsActive.Inc()
}

// ClientDisconnected drops the connected-clients gauge.
func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.clientsActive.Dec()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
