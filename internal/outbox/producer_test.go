package outbox

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/runtracker/internal/events"
)

func TestKafkaProducerReusesWritersPerTopic(t *testing.T) {
	var buf bytes.Buffer
	producer := NewKafkaProducer([]string{"127.0.0.1:9092"},
		WithProducerLogger(log.New(&buf, "", 0)),
		WithWriteTimeout(3*time.Second),
		WithWriteTimeout(0),
	)

	runs := producer.writerForTopic(events.TopicRunEvents)
	require.Same(t, runs, producer.writerForTopic(events.TopicRunEvents))
	goals := producer.writerForTopic(events.TopicGoalEvents)
	require.NotSame(t, runs, goals)

	require.Equal(t, events.TopicRunEvents, runs.Topic)
	require.Equal(t, 3*time.Second, runs.WriteTimeout)
	require.Equal(t, kafka.RequireAll, runs.RequiredAcks)
	require.IsType(t, &kafka.Hash{}, runs.Balancer)

	runs.ErrorLogger.Printf("write failed after %d attempts", 3)
	require.Equal(t, "topic=run_events: write failed after 3 attempts\n", buf.String())

	require.NoError(t, producer.Close())
	require.Empty(t, producer.writers)
}
