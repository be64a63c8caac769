package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccessAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_access_attempts_total",
			Help: "Terminal access outcomes by flow mode, outcome kind and reason",
		},
		[]string{"mode", "outcome", "reason"},
	)

	FramingAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_framing_assessments_total",
			Help: "Face framing assessments by resulting status",
		},
		[]string{"status"},
	)

	FramingSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_framing_cycles_skipped_total",
			Help: "Framing cycles skipped because an assessment was still in flight",
		},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gate_backend_request_duration_seconds",
			Help:    "Latency of calls to the hotel backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gate_kiosk_sessions_active",
			Help: "Kiosk WebSocket sessions currently open",
		},
	)

	PaymentPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_checkout_payment_polls_total",
			Help: "Payment reconciliation polls by observed state",
		},
		[]string{"state"},
	)
)
