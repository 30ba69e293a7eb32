package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eveflow_dash_events_accepted_total",
			Help: "Total number of events accepted by the ingest endpoint",
		},
	)

	BatchesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eveflow_dash_batches_rejected_total",
			Help: "Total number of rejected ingest requests by reason",
		},
		[]string{"reason"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eveflow_dash_ingest_duration_seconds",
			Help:    "Duration of ingest request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
