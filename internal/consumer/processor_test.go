package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/runtracker/internal/events"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"run_id":"abc","date":"2024-05-01","distance_km":10.5,"duration_min":52,"avg_heart_rate":145,"workout_type":"Tempo","pace_min_per_km":4.95,"recorded_at":"2024-05-01T07:00:00Z"}`)
	msg := runMessage(10, 42, events.TypeRunRecorded, "abc", payload)

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))
	beforeRuns := testutil.ToFloat64(runsIngestedCounter.WithLabelValues("Tempo"))
	beforeKm := testutil.ToFloat64(distanceIngestedCounter.WithLabelValues("Tempo"))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.InDelta(t, beforeRuns+1, testutil.ToFloat64(runsIngestedCounter.WithLabelValues("Tempo")), 0.0001)
	require.InDelta(t, beforeKm+10.5, testutil.ToFloat64(distanceIngestedCounter.WithLabelValues("Tempo")), 0.0001)
	require.NotNil(t, handler.last.Run)
	require.Nil(t, handler.last.Goal)
	require.Equal(t, "Tempo", handler.last.Run.WorkoutType)
	require.Equal(t, events.TypeRunRecorded, handler.last.EventType)
	require.Equal(t, "abc", handler.last.AggregateID)
	require.Equal(t, "run_events-value", handler.last.SchemaSubject)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"weekly_goal_km":80,"previous_goal_km":70,"updated_at":"2024-05-01T07:00:00Z"}`)
	msg := runMessage(20, 99, events.TypeGoalUpdated, "weekly_goal", payload)
	msg.Topic = events.TopicGoalEvents

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsUndecodableMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	missingHeader := runMessage(1, 1, events.TypeRunRecorded, "a", []byte(`{}`))
	missingHeader.Headers = nil
	wrongShape := runMessage(2, 1, events.TypeRunRecorded, "b", []byte(`{"distance_km":"far"}`))
	short := kafka.Message{Topic: events.TopicRunEvents, Offset: 3, Value: []byte{0, 1}}

	reader := &stubReader{
		messages: []kafka.Message{missingHeader, wrongShape, short},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))
	require.ErrorIs(t, processor.Run(ctx), context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
}

func TestDecodeMessagePassesUnknownEventTypes(t *testing.T) {
	msg := runMessage(4, 5, "run.annotated", "r-9", []byte(`{"anything":true}`))
	decoded, err := decodeMessage(msg)
	require.NoError(t, err)
	require.Equal(t, "run.annotated", decoded.EventType)
	require.Equal(t, 5, decoded.SchemaID)
	require.Nil(t, decoded.Run)
	require.Nil(t, decoded.Goal)

	goal, err := decodeMessage(runMessage(5, 5, events.TypeGoalUpdated, "weekly_goal", []byte(`{"weekly_goal_km":80,"previous_goal_km":70}`)))
	require.NoError(t, err)
	require.NotNil(t, goal.Goal)
	require.Equal(t, 80.0, goal.Goal.WeeklyGoalKm)

	msg.Value[0] = 1
	_, err = decodeMessage(msg)
	require.ErrorContains(t, err, "magic byte")
}

func runMessage(offset int64, schemaID uint32, eventType, aggregateID string, payload []byte) kafka.Message {
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)

	return kafka.Message{
		Topic:     events.TopicRunEvents,
		Partition: 0,
		Offset:    offset,
		Time:      time.Now().UTC(),
		Value:     value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "aggregate_id", Value: []byte(aggregateID)},
			{Key: "schema_subject", Value: []byte(events.TopicRunEvents + "-value")},
		},
	}
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
