// Package workflow implements the guided run entry dialogue as a pure state machine.
package workflow

import (
	"regexp"
	"strconv"
	"strings"

	"example.com/runtracker/internal/domain"
)

// Step names the field a state is waiting for.
type Step string

const (
	StepDistance    Step = "distance"
	StepDuration    Step = "duration"
	StepHeartRate   Step = "heart_rate"
	StepWorkoutType Step = "workout_type"
	StepNote        Step = "note"
)

// SkipNote is the literal answer that leaves the note empty.
const SkipNote = "-"

// State is one of the Await* variants. Each variant carries only the fields
// collected before it.
type State interface {
	Step() Step
	isState()
}

// AwaitDistance is the initial state.
type AwaitDistance struct{}

// AwaitDuration holds the accepted distance.
type AwaitDuration struct {
	DistanceKm float64
}

// AwaitHeartRate holds distance and duration.
type AwaitHeartRate struct {
	DistanceKm  float64
	DurationMin int
}

// AwaitWorkoutType holds distance, duration and heart rate.
type AwaitWorkoutType struct {
	DistanceKm   float64
	DurationMin  int
	AvgHeartRate int
}

// AwaitNote holds every field except the note.
type AwaitNote struct {
	DistanceKm   float64
	DurationMin  int
	AvgHeartRate int
	WorkoutType  domain.WorkoutType
}

func (AwaitDistance) Step() Step    { return StepDistance }
func (AwaitDuration) Step() Step    { return StepDuration }
func (AwaitHeartRate) Step() Step   { return StepHeartRate }
func (AwaitWorkoutType) Step() Step { return StepWorkoutType }
func (AwaitNote) Step() Step        { return StepNote }

func (AwaitDistance) isState()    {}
func (AwaitDuration) isState()    {}
func (AwaitHeartRate) isState()   {}
func (AwaitWorkoutType) isState() {}
func (AwaitNote) isState()        {}

// Start returns the initial state of a fresh workflow.
func Start() State {
	return AwaitDistance{}
}

// Outcome is the result of feeding one input to a state.
//
// Exactly one of the following holds: Invalid is set and Next is the unchanged
// input state; Entry is set and Next is nil (the workflow is complete); or Next
// is the following state.
type Outcome struct {
	Next    State
	Invalid bool
	Entry   *domain.RunEntry
}

// Committed reports whether the outcome carries a complete entry.
func (o Outcome) Committed() bool {
	return o.Entry != nil
}

// Advance applies input to state. It never mutates its arguments.
func Advance(state State, input string) Outcome {
	switch s := state.(type) {
	case AwaitDistance:
		km, ok := ParseDecimal(input)
		if !ok || !domain.ValidDistance(km) {
			return Outcome{Next: s, Invalid: true}
		}
		return Outcome{Next: AwaitDuration{DistanceKm: km}}

	case AwaitDuration:
		minutes, ok := ParseWhole(input)
		if !ok || !domain.ValidDuration(minutes) {
			return Outcome{Next: s, Invalid: true}
		}
		return Outcome{Next: AwaitHeartRate{DistanceKm: s.DistanceKm, DurationMin: minutes}}

	case AwaitHeartRate:
		bpm, ok := ParseWhole(input)
		if !ok || !domain.ValidHeartRate(bpm) {
			return Outcome{Next: s, Invalid: true}
		}
		return Outcome{Next: AwaitWorkoutType{DistanceKm: s.DistanceKm, DurationMin: s.DurationMin, AvgHeartRate: bpm}}

	case AwaitWorkoutType:
		wt, ok := domain.ParseWorkoutType(strings.TrimSpace(input))
		if !ok {
			return Outcome{Next: s, Invalid: true}
		}
		return Outcome{Next: AwaitNote{
			DistanceKm:   s.DistanceKm,
			DurationMin:  s.DurationMin,
			AvgHeartRate: s.AvgHeartRate,
			WorkoutType:  wt,
		}}

	case AwaitNote:
		note := input
		if note == SkipNote {
			note = ""
		}
		return Outcome{Entry: &domain.RunEntry{
			DistanceKm:   s.DistanceKm,
			DurationMin:  s.DurationMin,
			AvgHeartRate: s.AvgHeartRate,
			WorkoutType:  s.WorkoutType,
			Note:         note,
		}}
	}
	return Outcome{Next: state, Invalid: true}
}

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// ParseDecimal reads the numeric prefix of input as a real number. The first
// comma is treated as the decimal separator, so "10,5 km" yields 10.5. An
// exponent is honoured only when digits follow it: "1e2" is 100, "1e" is 1.
func ParseDecimal(input string) (float64, bool) {
	normalized := strings.Replace(strings.TrimLeft(input, " \t\r\n"), ",", ".", 1)
	match := leadingFloat.FindString(normalized)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseWhole reads the integer prefix of input, so "52.7" yields 52.
func ParseWhole(input string) (int, bool) {
	match := leadingInt.FindString(strings.TrimLeft(input, " \t\r\n"))
	if match == "" {
		return 0, false
	}
	value, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return value, true
}
