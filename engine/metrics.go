package engine

import (
	"github.com/c360/stompflow/broker"
	"github.com/c360/stompflow/errors"
	"github.com/c360/stompflow/metric"
)

// engineMetrics records loop activity against the core metrics. All record
// methods are safe on a nil receiver so the engine runs unchanged when
// metrics are disabled.
type engineMetrics struct {
	core *metric.Metrics
}

func newEngineMetrics(registry *metric.Registry) *engineMetrics {
	if registry == nil {
		return nil // Metrics disabled
	}
	return &engineMetrics{core: registry.CoreMetrics()}
}

func (m *engineMetrics) recordConnectAttempt(ep broker.Endpoint) {
	if m == nil {
		return
	}
	m.core.ConnectAttempts.WithLabelValues(ep.Addr()).Inc()
}

func (m *engineMetrics) recordConnectFailure(ep broker.Endpoint, err error) {
	if m == nil {
		return
	}
	m.core.ConnectFailures.WithLabelValues(ep.Addr(), errors.Classify(err).String()).Inc()
}

func (m *engineMetrics) recordConnected() {
	if m == nil {
		return
	}
	m.core.BrokerConnected.Set(1)
}

func (m *engineMetrics) recordDisconnected() {
	if m == nil {
		return
	}
	m.core.BrokerConnected.Set(0)
}

func (m *engineMetrics) recordFailover() {
	if m == nil {
		return
	}
	m.core.Failovers.Inc()
}

func (m *engineMetrics) recordFrame(command string) {
	if m == nil {
		return
	}
	m.core.FramesReceived.WithLabelValues(command).Inc()
}

func (m *engineMetrics) recordHandled(route string, seconds float64) {
	if m == nil {
		return
	}
	m.core.HandlerDuration.WithLabelValues(route).Observe(seconds)
}

func (m *engineMetrics) recordReply(route, status string) {
	if m == nil {
		return
	}
	m.core.RepliesSent.WithLabelValues(route, status).Inc()
}

func (m *engineMetrics) recordAck(route string) {
	if m == nil {
		return
	}
	m.core.FramesAcked.WithLabelValues(route).Inc()
}

func (m *engineMetrics) recordError(kind string) {
	if m == nil {
		return
	}
	m.core.ErrorsTotal.WithLabelValues(kind).Inc()
}
