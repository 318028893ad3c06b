package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cinebook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		},
		[]string{"route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"route"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking lifecycle transitions by outcome.",
		},
		[]string{"outcome"},
	)

	holdConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hold_conflicts_total",
			Help:      "Hold attempts rejected because a seat was not available.",
		},
	)

	seatsReleased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seats_released_total",
			Help:      "Seats returned to available by source.",
		},
		[]string{"source"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open realtime connections on this instance.",
		},
	)

	sweeperRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_runs_total",
			Help:      "Expiry sweeper passes by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookings,
			holdConflicts,
			seatsReleased,
			wsConnections,
			sweeperRuns,
		)
	})
}

// ObserveHTTP records one finished request.
func ObserveHTTP(route, status string, d time.Duration) {
	httpRequests.WithLabelValues(route, status).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// IncBooking counts a lifecycle outcome such as "created", "confirmed",
// "cancelled", "expired" or "payment_failed".
func IncBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

func IncHoldConflict() {
	holdConflicts.Inc()
}

func AddSeatsReleased(source string, n int) {
	if n <= 0 {
		return
	}
	seatsReleased.WithLabelValues(source).Add(float64(n))
}

func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }

func IncSweeperRun(result string) {
	sweeperRuns.WithLabelValues(result).Inc()
}
