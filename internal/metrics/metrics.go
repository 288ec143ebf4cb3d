// Package metrics holds the Prometheus collectors for c4arch.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"c4arch/diagram"
	"c4arch/editor"
)

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	Commits        *prometheus.CounterVec
	HistoryMoves   *prometheus.CounterVec
	RemoteRequests *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	StaleResponses *prometheus.CounterVec
	LiveSessions   prometheus.Gauge
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "c4arch_commits_total",
				Help: "Snapshots committed to history, by edit source",
			},
			[]string{"source"},
		),
		HistoryMoves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "c4arch_history_moves_total",
				Help: "Undo and redo steps taken",
			},
			[]string{"direction"},
		),
		RemoteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "c4arch_remote_requests_total",
				Help: "Requests sent to the diagram service",
			},
			[]string{"endpoint", "outcome"},
		),
		RemoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "c4arch_remote_request_duration_seconds",
				Help:    "Duration of requests to the diagram service",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		StaleResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "c4arch_stale_responses_total",
				Help: "Remote responses discarded because a newer request was issued",
			},
			[]string{"operation"},
		),
		LiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "c4arch_sessions_live",
				Help: "Sessions currently held in memory",
			},
		),
	}
	m.registry.MustRegister(
		m.Commits,
		m.HistoryMoves,
		m.RemoteRequests,
		m.RemoteDuration,
		m.StaleResponses,
		m.LiveSessions,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EditorHooks returns orchestrator hooks that feed the history collectors.
func (m *Metrics) EditorHooks() editor.Hooks {
	if m == nil {
		return editor.Hooks{}
	}
	return editor.Hooks{
		OnCommit: func(source editor.Source, _ *diagram.Snapshot) {
			m.Commits.WithLabelValues(string(source)).Inc()
		},
		OnUndo: func(*diagram.Snapshot) {
			m.HistoryMoves.WithLabelValues("undo").Inc()
		},
		OnRedo: func(*diagram.Snapshot) {
			m.HistoryMoves.WithLabelValues("redo").Inc()
		},
	}
}

// ObserveRemote records one remote call.
func (m *Metrics) ObserveRemote(endpoint string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RemoteRequests.WithLabelValues(endpoint, outcome).Inc()
	m.RemoteDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

// Stale records a discarded response.
func (m *Metrics) Stale(operation string) {
	if m == nil {
		return
	}
	m.StaleResponses.WithLabelValues(operation).Inc()
}

// SessionOpened and SessionClosed track live sessions.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.LiveSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.LiveSessions.Dec()
	}
}
