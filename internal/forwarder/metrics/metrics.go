package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eveflow_forwarder_events_tailed_total",
			Help: "Total number of events read from the sensor log",
		},
	)

	ParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eveflow_forwarder_parse_errors_total",
			Help: "Total number of log lines dropped as unparsable",
		},
	)

	EventsForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eveflow_forwarder_events_forwarded_total",
			Help: "Total number of events delivered to the collector",
		},
	)

	EventsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eveflow_forwarder_events_failed_total",
			Help: "Total number of events dropped after exhausting the retry budget",
		},
	)

	BatchesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eveflow_forwarder_batches_total",
			Help: "Total number of batch delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	Buffered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eveflow_forwarder_buffered_events",
			Help: "Current number of unflushed events in the batch buffer",
		},
	)

	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eveflow_forwarder_send_duration_seconds",
			Help:    "Duration of batch delivery attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
