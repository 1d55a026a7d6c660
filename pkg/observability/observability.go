// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package observability holds the gateway's Prometheus metrics. Each Metrics
// value owns its own registry, so several gateways can coexist in one process.
package observability

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Call outcomes used as the "outcome" label.
const (
	OutcomeOK      = "ok"
	OutcomeFault   = "fault"
	OutcomeTimeout = "timeout"
	OutcomeMock    = "mock"
)

// Metrics is the gateway metric set. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	connects     *prometheus.CounterVec
	registered   prometheus.Gauge
	inFlight     *prometheus.GaugeVec
}

// NewMetrics registers the metric set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devopsmcp_tool_calls_total",
				Help: "Tool invocations by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devopsmcp_tool_call_duration_seconds",
				Help:    "Duration of forwarded tool calls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service"},
		),
		connects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devopsmcp_service_connects_total",
				Help: "Provider connection attempts by service and status",
			},
			[]string{"service", "status"},
		),
		registered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "devopsmcp_services_registered",
			Help: "Providers with a live connection",
		}),
		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "devopsmcp_tool_calls_in_flight",
				Help: "Tool calls currently forwarded to a provider",
			},
			[]string{"service"},
		),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCall records one invocation. Mock answers carry no duration.
func (m *Metrics) ObserveCall(service, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(service, outcome).Inc()
	if outcome != OutcomeMock {
		m.callDuration.WithLabelValues(service).Observe(d.Seconds())
	}
}

// ObserveConnect records a connection attempt.
func (m *Metrics) ObserveConnect(service string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.connects.WithLabelValues(service, status).Inc()
}

// SetRegistered sets the number of live providers.
func (m *Metrics) SetRegistered(n int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(n))
}

// CallStarted increments the in-flight gauge and returns its decrement.
func (m *Metrics) CallStarted(service string) func() {
	if m == nil {
		return func() {}
	}
	g := m.inFlight.WithLabelValues(service)
	g.Inc()
	return g.Dec
}

// WriteText writes every metric family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
