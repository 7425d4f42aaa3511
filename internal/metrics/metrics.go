package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DepositTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdealer_deposit_transitions_total",
			Help: "Committed deposit lifecycle transitions",
		},
		[]string{"transition"},
	)

	DepositTransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdealer_deposit_transitions_rejected_total",
			Help: "Deposit lifecycle transitions rejected before any write",
		},
		[]string{"transition", "code"},
	)

	Settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdealer_settlements_total",
			Help: "Completed final payments by payment type",
		},
		[]string{"payment_type"},
	)

	TaskAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdealer_preorder_task_advances_total",
			Help: "Pre-order task status changes by target status",
		},
		[]string{"status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "evdealer_http_request_duration_seconds",
			Help: "HTTP request latency by route pattern and status",
		},
		[]string{"method", "route", "status"},
	)
)
