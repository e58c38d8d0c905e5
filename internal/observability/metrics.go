package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "orders_created_total", Help: "Orders created, by category"},
		[]string{"category"},
	)
	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "order_transitions_total", Help: "Order status transitions applied"},
		[]string{"to"},
	)
	OffersSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "offers_submitted_total", Help: "Driver offers submitted"},
	)
	OffersAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "offers_accepted_total", Help: "Offers accepted by customers"},
	)
	AcceptConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "accept_conflicts_total", Help: "Offer acceptances lost to a concurrent winner"},
	)
	RoutingFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "routing_fallbacks_total", Help: "Route resolutions served by the straight-line fallback"},
	)
	LocationSamplesTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "location_samples_total", Help: "Location samples pushed by actors"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
