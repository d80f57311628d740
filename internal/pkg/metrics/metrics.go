package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BotOrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "volgate_bot_orders_total",
		Help: "The total number of bot order placement attempts",
	}, []string{"status", "side"})

	BotSweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "volgate_bot_sweeps_total",
		Help: "Total stale-order sweep runs",
	}, []string{"status"})

	BotSweptOrders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "volgate_bot_swept_orders_total",
		Help: "Total stale orders cancelled by the sweeper",
	})

	VenueLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "volgate_venue_latency_seconds",
		Help:    "Venue request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "volgate_http_latency_seconds",
		Help:    "Control API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
