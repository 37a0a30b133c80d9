package services

import "github.com/prometheus/client_golang/prometheus"

var (
	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders placed, labelled by whether a registered user placed them",
		},
		[]string{"customer"}, // guest or registered
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status changes by target status",
		},
		[]string{"status"},
	)

	paymentsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Payments recorded by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	paymentAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_amount",
		Help:    "Paid amounts in the smallest currency unit",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 10),
	})
)

// Collectors returns the service metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{ordersCreated, statusTransitions, paymentsRecorded, paymentAmount}
}
