package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesd_sales_created_total",
			Help: "Total number of sales created",
		},
	)

	PaymentResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesd_payment_resolutions_total",
			Help: "Total number of payment resolutions by outcome",
		},
		[]string{"outcome"},
	)

	PendingApprovals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesd_pending_approvals_total",
			Help: "Total number of pending sales auto-resolved by the scheduler",
		},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesd_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts by result",
		},
		[]string{"result"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesd_sweep_duration_seconds",
			Help:    "Reconciliation sweep duration in seconds by phase",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"phase"},
	)
)
