package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	producerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepilot_kafka_producer_messages_total",
		Help: "Messages published to Kafka",
	}, []string{"topic", "result"})

	producerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradepilot_kafka_producer_publish_seconds",
		Help:    "Publish latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepilot_kafka_consumer_messages_total",
		Help: "Messages handled by the consumer",
	}, []string{"topic", "result"})

	consumerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradepilot_kafka_consumer_handle_seconds",
		Help:    "Handling time per message",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func observePublish(topic string, started time.Time, err error) {
	producerMessages.WithLabelValues(topic, resultLabel(err)).Inc()
	producerLatency.WithLabelValues(topic).Observe(time.Since(started).Seconds())
}

func observeHandle(topic string, started time.Time, err error) {
	consumerMessages.WithLabelValues(topic, resultLabel(err)).Inc()
	consumerLatency.WithLabelValues(topic).Observe(time.Since(started).Seconds())
}
