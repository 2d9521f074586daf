package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labbook",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labbook",
			Name:      "bookings_created_total",
			Help:      "Count of booking attempts by outcome.",
		},
		[]string{"status"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labbook",
			Name:      "availability_checks_total",
			Help:      "Count of availability checks by result.",
		},
		[]string{"result"},
	)

	storeFailover = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labbook",
			Name:      "store_failover_total",
			Help:      "Count of operations served by the fallback store.",
		},
		[]string{"operation"},
	)

	primaryDown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "labbook",
			Name:      "store_primary_down",
			Help:      "1 while the primary store is marked down.",
		},
	)

	assetFlagFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labbook",
			Name:      "asset_flag_update_failures_total",
			Help:      "Bookings placed whose asset availability flag could not be updated.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingCreated,
			availabilityChecks,
			storeFailover,
			primaryDown,
			assetFlagFailures,
		)
	})
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncAvailabilityCheck(result string) {
	availabilityChecks.WithLabelValues(result).Inc()
}

func IncFailover(operation string) {
	storeFailover.WithLabelValues(operation).Inc()
}

func SetPrimaryDown(down bool) {
	if down {
		primaryDown.Set(1)
		return
	}
	primaryDown.Set(0)
}

func IncAssetFlagFailure() {
	assetFlagFailures.Inc()
}
