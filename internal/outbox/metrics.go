package outbox

import (
	"github.com/prometheus/client_golang/prometheus"

	"example.com/runtracker/internal/events"
)

var (
	deliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox events published to Kafka, labeled by event type and, for runs, workout type.",
	}, []string{"event_type", "workout_type"})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of outbox events that failed to publish and were routed to the DLQ.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runtracker",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent fetching, delivering, and marking outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "outbox",
		Name:      "events_dlq_total",
		Help:      "Number of outbox events routed to the dead-letter queue, labeled by topic and workout type.",
	}, []string{"topic", "workout_type"})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration, dlqCounter)
}

func recordDelivered(msg Message) {
	deliveredCounter.WithLabelValues(msg.EventType, events.WorkoutTypeOf(msg.EventType, msg.Payload)).Inc()
}

func recordRoutedToDLQ(msg Message) {
	dlqCounter.WithLabelValues(msg.Topic, events.WorkoutTypeOf(msg.EventType, msg.Payload)).Inc()
}
