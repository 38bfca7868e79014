package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "charger_bookings_created_total",
			Help: "Bookings created",
		},
	)

	BookingsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "charger_bookings_cancelled_total",
			Help: "Bookings cancelled",
		},
	)

	BookingsRescheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "charger_bookings_rescheduled_total",
			Help: "Bookings moved to a new interval",
		},
	)

	// BookingConflicts is labelled by where the conflict was caught:
	// "precheck" or "storage" (a lost race).
	BookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charger_booking_conflicts_total",
			Help: "Booking writes rejected because the interval was taken",
		},
		[]string{"stage"},
	)

	CodeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "charger_confirmation_code_collisions_total",
			Help: "Generated confirmation codes that were already taken",
		},
	)

	CalendarCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charger_calendar_cache_total",
			Help: "Calendar cache lookups",
		},
		[]string{"result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charger_events_published_total",
			Help: "Booking lifecycle events handed to the broker",
		},
		[]string{"key", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charger_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charger_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordConflict(stage string) {
	BookingConflicts.WithLabelValues(stage).Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		CalendarCache.WithLabelValues("hit").Inc()
		return
	}
	CalendarCache.WithLabelValues("miss").Inc()
}

func RecordEvent(key string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EventsPublished.WithLabelValues(key, status).Inc()
}

func RecordHTTPRequest(method, route, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
