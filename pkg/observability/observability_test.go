// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

package observability

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	m := NewMetrics()
	m.ObserveCall("devops", OutcomeOK, 20*time.Millisecond)
	m.ObserveCall("devops", OutcomeOK, 30*time.Millisecond)
	m.ObserveCall("devops", OutcomeFault, time.Millisecond)
	m.ObserveCall("notion", OutcomeMock, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("devops", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("devops", OutcomeFault)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("notion", OutcomeMock)))

	assert.Equal(t, 1, testutil.CollectAndCount(m.callDuration), "mock calls are not timed")
}

func TestConnectsAndRegistered(t *testing.T) {
	m := NewMetrics()
	m.ObserveConnect("slack", nil)
	m.ObserveConnect("notion", errors.New("exit status 1"))
	m.SetRegistered(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connects.WithLabelValues("slack", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connects.WithLabelValues("notion", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registered))
}

func TestCallStarted(t *testing.T) {
	m := NewMetrics()
	done := m.CallStarted("devops")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight.WithLabelValues("devops")))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("devops")))
}

func TestWriteText(t *testing.T) {
	m := NewMetrics()
	m.ObserveCall("reviewer", OutcomeTimeout, 8*time.Second)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "# TYPE devopsmcp_tool_calls_total counter")
	assert.Contains(t, out, `devopsmcp_tool_calls_total{outcome="timeout",service="reviewer"} 1`)
	assert.Contains(t, out, "devopsmcp_services_registered 0")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCall("x", OutcomeOK, time.Second)
	m.ObserveConnect("x", nil)
	m.SetRegistered(3)
	m.CallStarted("x")()
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteText(&bytes.Buffer{}))
}
