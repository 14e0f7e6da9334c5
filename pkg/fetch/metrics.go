package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OutcomesTotal counts request outcomes by kind and status.
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiod_fetch_outcomes_total",
			Help: "Total fetch outcomes by request kind and status",
		},
		[]string{"kind", "status"}, // "item"|"page", "success"|"failure"
	)

	// InFlight tracks requests currently dispatched to the transport.
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aiod_fetch_in_flight",
			Help: "Number of catalogue requests currently in flight",
		},
	)

	// BatchDuration tracks how long a whole batch takes.
	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiod_fetch_batch_duration_seconds",
			Help:    "Duration of a fetch batch in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"mode"}, // "ids", "listing"
	)
)
