package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velora",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velora",
			Name:      "record_moved_total",
			Help:      "Count of booking and block moves by kind.",
		},
		[]string{"kind"},
	)

	schedulingConflict = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velora",
			Name:      "scheduling_conflict_total",
			Help:      "Count of rejected scheduling operations by conflict kind.",
		},
		[]string{"kind"},
	)

	charge = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velora",
			Name:      "charge_total",
			Help:      "Count of payment capture attempts by outcome.",
		},
		[]string{"outcome"},
	)

	penaltyCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velora",
			Name:      "noshow_penalty_captured_total",
			Help:      "Count of no-show penalty captures.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velora",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingMoved, schedulingConflict, charge, penaltyCaptured, httpRequests)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncMoved(kind string) {
	bookingMoved.WithLabelValues(kind).Inc()
}

func IncConflict(kind string) {
	schedulingConflict.WithLabelValues(kind).Inc()
}

func IncCharge(outcome string) {
	charge.WithLabelValues(outcome).Inc()
}

func IncPenaltyCaptured() {
	penaltyCaptured.Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
