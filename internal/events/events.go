// Package events defines the event payloads published through the outbox.
package events

import (
	"encoding/json"
	"time"
)

// Event types written to the outbox.
const (
	TypeRunRecorded = "run.recorded"
	TypeGoalUpdated = "goal.updated"
)

// Topics the events are published to.
const (
	TopicRunEvents  = "run_events"
	TopicGoalEvents = "goal_events"
)

// RunRecorded is emitted once for every run appended to the store.
type RunRecorded struct {
	RunID        string    `json:"run_id"`
	Date         string    `json:"date"`
	DistanceKm   float64   `json:"distance_km"`
	DurationMin  int       `json:"duration_min"`
	AvgHeartRate int       `json:"avg_heart_rate"`
	WorkoutType  string    `json:"workout_type"`
	Note         string    `json:"note,omitempty"`
	PaceMinPerKm float64   `json:"pace_min_per_km"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// GoalUpdated is emitted when the weekly goal is overwritten.
type GoalUpdated struct {
	WeeklyGoalKm   float64   `json:"weekly_goal_km"`
	PreviousGoalKm float64   `json:"previous_goal_km"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkoutTypeOf returns the workout type carried by a run.recorded payload.
// Other events, and payloads that do not decode, yield "".
func WorkoutTypeOf(eventType string, payload []byte) string {
	if eventType != TypeRunRecorded {
		return ""
	}
	var run RunRecorded
	if err := json.Unmarshal(payload, &run); err != nil {
		return ""
	}
	return run.WorkoutType
}
