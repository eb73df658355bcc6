package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Number of Kafka messages successfully handled.",
	}, []string{"topic", "event_type"})

	runsIngestedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "consumer",
		Name:      "runs_ingested_total",
		Help:      "Number of run.recorded events handled, by workout type.",
	}, []string{"workout_type"})

	distanceIngestedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "consumer",
		Name:      "distance_ingested_km_total",
		Help:      "Kilometres carried by handled run.recorded events, by workout type.",
	}, []string{"workout_type"})

	weeklyGoalGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runtracker",
		Subsystem: "consumer",
		Name:      "weekly_goal_km",
		Help:      "Weekly goal carried by the most recent goal.updated event.",
	})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Number of decode failures per topic.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "runtracker",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, runsIngestedCounter, distanceIngestedCounter, weeklyGoalGauge, handlerErrorCounter, decodeErrorCounter, lastMessageGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
	if msg.Run != nil {
		runsIngestedCounter.WithLabelValues(msg.Run.WorkoutType).Inc()
		distanceIngestedCounter.WithLabelValues(msg.Run.WorkoutType).Add(msg.Run.DistanceKm)
	}
	if msg.Goal != nil {
		weeklyGoalGauge.Set(msg.Goal.WeeklyGoalKm)
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
