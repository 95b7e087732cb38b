package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Charge job metrics
	billingJobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_job_runs_total",
		Help: "Total charge job runs",
	}, []string{
		"job",
		"outcome", // success, failed, skipped
	})

	billingJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_job_duration_seconds",
		Help:    "Wall time of one charge job run",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
	}, []string{
		"job",
	})

	billingPagesScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_pages_scanned_total",
		Help: "Subscription pages read by the charge job",
	}, []string{
		"job",
	})

	billingMessagesEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_messages_enqueued_total",
		Help: "Charge messages handed to the queue",
	}, []string{
		"job",
	})

	// Charge worker metrics
	subscriptionChargesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_charges_total",
		Help: "Total subscription charge outcomes",
	}, []string{
		"tenant_id",
		"status", // succeeded, declined, failed, duplicate
	})

	subscriptionRevenueMinorUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_revenue_minor_units_total",
		Help: "Total subscription revenue in the currency's minor unit",
	}, []string{
		"tenant_id",
		"currency",
	})

	// Lifecycle metrics
	subscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_transitions_total",
		Help: "Subscription state changes",
	}, []string{
		"from",
		"to",
	})
)

// RecordJobRun records one charge job run
func RecordJobRun(job, outcome string, durationSeconds float64) {
	billingJobRunsTotal.WithLabelValues(job, outcome).Inc()
	billingJobDuration.WithLabelValues(job).Observe(durationSeconds)
}

// RecordJobPage records one scanned page and the messages it produced
func RecordJobPage(job string, enqueued int) {
	billingPagesScanned.WithLabelValues(job).Inc()
	billingMessagesEnqueued.WithLabelValues(job).Add(float64(enqueued))
}

// RecordSubscriptionCharge records a charge outcome
func RecordSubscriptionCharge(tenantID, status string, amountMinor int64, currency string) {
	subscriptionChargesTotal.WithLabelValues(tenantID, status).Inc()

	// Only count successful charges toward revenue
	if status == "succeeded" {
		subscriptionRevenueMinorUnits.WithLabelValues(tenantID, currency).Add(float64(amountMinor))
	}
}

// RecordSubscriptionTransition records a lifecycle state change
func RecordSubscriptionTransition(from, to string) {
	subscriptionTransitionsTotal.WithLabelValues(from, to).Inc()
}
