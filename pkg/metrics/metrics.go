package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketbooth_booking_transitions_total",
			Help: "Booking lifecycle transitions by target status",
		},
		[]string{"status"},
	)

	inventoryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketbooth_inventory_operations_total",
			Help: "Inventory ledger operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	discountRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketbooth_discount_rejections_total",
			Help: "Discount codes rejected during quote or reservation",
		},
		[]string{"reason"},
	)

	expirySweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketbooth_expiry_sweep_duration_seconds",
			Help:    "Duration of booking expiry sweeps",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)
)

func BookingTransition(status string) {
	bookingTransitions.WithLabelValues(status).Inc()
}

func InventoryOperation(operation, outcome string) {
	inventoryOperations.WithLabelValues(operation, outcome).Inc()
}

func DiscountRejected(reason string) {
	discountRejections.WithLabelValues(reason).Inc()
}

func ObserveExpirySweep(seconds float64) {
	expirySweepDuration.Observe(seconds)
}
