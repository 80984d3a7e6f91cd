package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	producerPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Messages published, by topic",
		},
		[]string{"topic"},
	)

	producerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Failed publish attempts, by topic",
		},
		[]string{"topic"},
	)

	producerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Publish latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	consumerProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_processed_total",
			Help: "Messages handled successfully",
		},
		[]string{"topic", "consumer_group"},
	)

	consumerFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_failed_total",
			Help: "Messages skipped after exhausting handler retries or failing to decode",
		},
		[]string{"topic", "consumer_group"},
	)

	consumerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "consumer_group"},
	)
)
