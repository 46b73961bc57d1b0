// Package metrics exposes the Prometheus collectors of the reservation core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons recorded on failed reservations.
const (
	ReasonSoldOut   = "sold_out"
	ReasonCancelled = "cancelled"
	ReasonNotFound  = "not_found"
)

var (
	// HTTPRequestDuration observes request latency per route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planet_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// ReservationsTotal counts successful capacity debits.
	ReservationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planet_reservations_total",
			Help: "Successful reservations (cart additions).",
		},
	)

	// ReservationRejectionsTotal counts rejected reservations by reason.
	ReservationRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planet_reservation_rejections_total",
			Help: "Rejected reservations by reason.",
		},
		[]string{"reason"},
	)

	// ReleasesTotal counts reservation releases (capacity credits).
	ReleasesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planet_reservation_releases_total",
			Help: "Released reservations (cart removals).",
		},
	)
)
