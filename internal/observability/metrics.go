package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busbooking_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "busbooking_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	HoldsAcquired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busbooking_holds_acquired_total",
			Help: "Total seat holds acquired",
		},
	)

	HoldsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busbooking_holds_swept_total",
			Help: "Total expired seat holds evicted by the sweeper",
		},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busbooking_bookings_created_total",
			Help: "Total bookings created",
		},
	)

	PaymentsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busbooking_payments_applied_total",
			Help: "Total payments applied to bookings",
		},
	)

	RefundsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busbooking_refunds_issued_total",
			Help: "Total refunds issued",
		},
	)

	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busbooking_events_published_total",
			Help: "Total outbox events published to the broker",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busbooking_rate_limit_exceeded_total",
			Help: "Total requests rejected by the rate limiter",
		},
	)
)
