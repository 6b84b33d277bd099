package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	capturesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_orders",
			Subsystem: "kafka_consumer",
			Name:      "captures_processed_total",
			Help:      "Total number of successfully applied capture events",
		},
	)

	capturesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_orders",
			Subsystem: "kafka_consumer",
			Name:      "captures_failed_total",
			Help:      "Total number of capture events that could not be applied",
		},
	)

	capturesDLQ = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_orders",
			Subsystem: "kafka_consumer",
			Name:      "captures_dlq_total",
			Help:      "Total number of capture events written to DLQ",
		},
	)

	storeOutageRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_orders",
			Subsystem: "kafka_consumer",
			Name:      "store_outage_retry_rounds_total",
			Help:      "Total number of exhausted retry rounds while the order store was unavailable",
		},
	)

	commitErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_orders",
			Subsystem: "kafka_consumer",
			Name:      "commit_errors_total",
			Help:      "Total number of Kafka commit errors",
		},
	)

	captureProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storefront_orders",
			Subsystem: "kafka_consumer",
			Name:      "capture_processing_duration_seconds",
			Help:      "Histogram of capture processing durations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	capturesInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront_orders",
			Subsystem: "kafka_consumer",
			Name:      "captures_in_progress",
			Help:      "Number of capture events currently being processed",
		},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(
		capturesProcessed,
		capturesFailed,
		capturesDLQ,
		storeOutageRetries,
		commitErrors,
		captureProcessingDuration,
		capturesInProgress,
	)
}
