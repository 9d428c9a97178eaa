// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics",
	fx.Provide(func() *Metrics { return New(nil) }),
)

const namespace = "tier_orchestrator"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Runs         *prometheus.CounterVec
	BackendCalls *prometheus.CounterVec

	AwaitingFollowUp *prometheus.GaugeVec
	StaleRuns        prometheus.Gauge
	RecoveredRuns    *prometheus.CounterVec
}

// New registers every collector on reg, or on a fresh registry with the Go
// and process collectors when reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed orchestrator runs by kind and terminal status.",
		}, []string{"kind", "status"}),
		BackendCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Outbound calls by service, operation and outcome.",
		}, []string{"service", "operation", "outcome"}),
		AwaitingFollowUp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_awaiting_follow_up",
			Help:      "Runs whose terminal status needs operator follow-up.",
		}, []string{"status"}),
		StaleRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_stale",
			Help:      "Runs stuck in a non-terminal state.",
		}),
		RecoveredRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_recovered_total",
			Help:      "Interrupted runs closed from their last persisted state.",
		}, []string{"kind", "state"}),
	}
}

// RecordRun counts a finished run.
func (m *Metrics) RecordRun(kind, status string) {
	m.Runs.WithLabelValues(kind, status).Inc()
}

// RecordCall counts one outbound call.
func (m *Metrics) RecordCall(service, operation, outcome string) {
	m.BackendCalls.WithLabelValues(service, operation, outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
