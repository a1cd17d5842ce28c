package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all core engine metrics (not controller-specific)
type Metrics struct {
	// Broker connection metrics
	BrokerConnected prometheus.Gauge
	ConnectAttempts *prometheus.CounterVec
	ConnectFailures *prometheus.CounterVec
	Failovers       prometheus.Counter

	// Frame metrics
	FramesReceived  *prometheus.CounterVec
	FramesAcked     *prometheus.CounterVec
	RepliesSent     *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		BrokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "stompflow",
				Subsystem: "broker",
				Name:      "connected",
				Help:      "Broker connection status (0=disconnected, 1=connected)",
			},
		),

		ConnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stompflow",
				Subsystem: "broker",
				Name:      "connect_attempts_total",
				Help:      "Total number of broker connection attempts",
			},
			[]string{"endpoint"},
		),

		ConnectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stompflow",
				Subsystem: "broker",
				Name:      "connect_failures_total",
				Help:      "Total number of failed broker connection attempts",
			},
			[]string{"endpoint", "reason"},
		),

		Failovers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stompflow",
				Subsystem: "broker",
				Name:      "failovers_total",
				Help:      "Total number of failovers to the next configured endpoint",
			},
		),

		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stompflow",
				Subsystem: "frames",
				Name:      "received_total",
				Help:      "Total number of frames received, by command",
			},
			[]string{"command"},
		),

		FramesAcked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stompflow",
				Subsystem: "frames",
				Name:      "acked_total",
				Help:      "Total number of MESSAGE frames acknowledged",
			},
			[]string{"route"},
		),

		RepliesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stompflow",
				Subsystem: "frames",
				Name:      "replies_total",
				Help:      "Total number of reply frames sent",
			},
			[]string{"route", "status"},
		),

		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stompflow",
				Subsystem: "handler",
				Name:      "duration_seconds",
				Help:      "Handler processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stompflow",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors, by kind",
			},
			[]string{"kind"},
		),
	}
}
