package domain

import (
	"fmt"
	"time"
)

// Entry bounds enforced by the guided workflow and RecordRun.
const (
	MaxDistanceKm       = 100.0
	MaxDurationMin      = 600
	MaxHeartRate        = 220
	MaxWeeklyGoalKm     = 500.0
	DefaultWeeklyGoalKm = 70.0
)

// WorkoutType labels the kind of run.
type WorkoutType string

const (
	WorkoutEasy      WorkoutType = "Easy"
	WorkoutTempo     WorkoutType = "Tempo"
	WorkoutIntervals WorkoutType = "Intervals"
	WorkoutLong      WorkoutType = "Long"
)

// WorkoutTypes lists the accepted workout types in menu order.
var WorkoutTypes = []WorkoutType{WorkoutEasy, WorkoutTempo, WorkoutIntervals, WorkoutLong}

// ParseWorkoutType matches a label exactly (case-sensitive).
func ParseWorkoutType(label string) (WorkoutType, bool) {
	for _, wt := range WorkoutTypes {
		if string(wt) == label {
			return wt, true
		}
	}
	return "", false
}

// Run is one recorded workout. Runs are never edited or removed once appended.
type Run struct {
	ID           string      `json:"id"`
	Date         time.Time   `json:"date"`
	DistanceKm   float64     `json:"distance_km"`
	DurationMin  int         `json:"duration_min"`
	AvgHeartRate int         `json:"avg_heart_rate"`
	WorkoutType  WorkoutType `json:"workout_type"`
	Note         string      `json:"note,omitempty"`
	RecordedAt   time.Time   `json:"recorded_at"`
}

// PaceMinPerKm returns minutes per kilometre. DistanceKm must be positive.
func (r Run) PaceMinPerKm() float64 {
	return float64(r.DurationMin) / r.DistanceKm
}

// RunEntry is the user-supplied part of a Run, collected by the entry workflow.
type RunEntry struct {
	DistanceKm   float64
	DurationMin  int
	AvgHeartRate int
	WorkoutType  WorkoutType
	Note         string
}

// Validate checks the entry against the accepted ranges.
func (e RunEntry) Validate() error {
	if !ValidDistance(e.DistanceKm) {
		return fmt.Errorf("%w: distance %v km outside (0, %v]", ErrInvalidRun, e.DistanceKm, MaxDistanceKm)
	}
	if !ValidDuration(e.DurationMin) {
		return fmt.Errorf("%w: duration %d min outside (0, %d]", ErrInvalidRun, e.DurationMin, MaxDurationMin)
	}
	if !ValidHeartRate(e.AvgHeartRate) {
		return fmt.Errorf("%w: heart rate %d outside (0, %d]", ErrInvalidRun, e.AvgHeartRate, MaxHeartRate)
	}
	if _, ok := ParseWorkoutType(string(e.WorkoutType)); !ok {
		return fmt.Errorf("%w: unknown workout type %q", ErrInvalidRun, e.WorkoutType)
	}
	return nil
}

// ValidDistance reports whether 0 < km <= MaxDistanceKm.
func ValidDistance(km float64) bool { return km > 0 && km <= MaxDistanceKm }

// ValidDuration reports whether 0 < min <= MaxDurationMin.
func ValidDuration(min int) bool { return min > 0 && min <= MaxDurationMin }

// ValidHeartRate reports whether 0 < bpm <= MaxHeartRate.
func ValidHeartRate(bpm int) bool { return bpm > 0 && bpm <= MaxHeartRate }

// ValidWeeklyGoal reports whether 0 < km <= MaxWeeklyGoalKm.
func ValidWeeklyGoal(km float64) bool { return km > 0 && km <= MaxWeeklyGoalKm }
