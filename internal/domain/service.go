// Package domain defines the business logic for the run tracker.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/runtracker/internal/observability"
)

var (
	// ErrNoRuns is returned when a report needs at least one recorded run.
	ErrNoRuns = errors.New("no runs recorded")
	// ErrInvalidRun wraps entry validation failures.
	ErrInvalidRun = errors.New("invalid run")
	// ErrInvalidGoal is returned when a weekly goal falls outside (0, MaxWeeklyGoalKm].
	ErrInvalidGoal = errors.New("invalid weekly goal")
)

// RunStore captures persistence operations. Implementations serialize writes and
// return runs in insertion order.
type RunStore interface {
	Append(ctx context.Context, run Run) error
	List(ctx context.Context) ([]Run, error)
	// ListSince returns runs whose calendar date is on or after since's calendar date.
	ListSince(ctx context.Context, since time.Time) ([]Run, error)
	WeeklyGoal(ctx context.Context) (float64, error)
	SetWeeklyGoal(ctx context.Context, km float64) error
}

// Clock returns the current instant in the tracker's time zone.
type Clock func() time.Time

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the clock used for commit dates and report windows.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Service orchestrates run recording and reporting over a RunStore.
type Service struct {
	store RunStore
	now   Clock
}

// NewService constructs a Service.
func NewService(store RunStore, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current instant.
func (s *Service) Now() time.Time {
	return s.now()
}

// RecordRun validates the entry, dates it today and appends it to the store.
func (s *Service) RecordRun(ctx context.Context, entry RunEntry) (Run, error) {
	if err := entry.Validate(); err != nil {
		return Run{}, err
	}

	now := s.now()
	y, m, d := now.Date()
	run := Run{
		ID:           uuid.NewString(),
		Date:         time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		DistanceKm:   entry.DistanceKm,
		DurationMin:  entry.DurationMin,
		AvgHeartRate: entry.AvgHeartRate,
		WorkoutType:  entry.WorkoutType,
		Note:         entry.Note,
		RecordedAt:   now,
	}

	if err := s.store.Append(ctx, run); err != nil {
		return Run{}, fmt.Errorf("append run: %w", err)
	}
	observability.RecordRunPersisted(string(run.WorkoutType), run.RecordedAt)
	return run, nil
}

// Stats computes today/week/month aggregates for the current instant.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	runs, err := s.store.ListSince(ctx, WindowStart(now))
	if err != nil {
		return Stats{}, fmt.Errorf("list runs: %w", err)
	}
	return ComputeStats(runs, now), nil
}

// Summary computes all-time totals together with the current Stats.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	runs, err := s.store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list runs: %w", err)
	}
	return Summarize(runs, s.now()), nil
}

// LastRun returns the most recently appended run or ErrNoRuns.
func (s *Service) LastRun(ctx context.Context) (Run, error) {
	runs, err := s.store.List(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[len(runs)-1], nil
}

// Runs returns the full history in entry order.
func (s *Service) Runs(ctx context.Context) ([]Run, error) {
	runs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// WeeklyGoal returns the current weekly goal in kilometres.
func (s *Service) WeeklyGoal(ctx context.Context) (float64, error) {
	goal, err := s.store.WeeklyGoal(ctx)
	if err != nil {
		return 0, fmt.Errorf("load weekly goal: %w", err)
	}
	return goal, nil
}

// SetWeeklyGoal overwrites the weekly goal. Out-of-range values leave it untouched.
func (s *Service) SetWeeklyGoal(ctx context.Context, km float64) error {
	if !ValidWeeklyGoal(km) {
		return fmt.Errorf("%w: %v km", ErrInvalidGoal, km)
	}
	if err := s.store.SetWeeklyGoal(ctx, km); err != nil {
		return fmt.Errorf("store weekly goal: %w", err)
	}
	observability.RecordWeeklyGoal(km)
	return nil
}

// OnOrAfterDay reports whether date falls on or after since, comparing calendar days.
func OnOrAfterDay(date, since time.Time) bool {
	return dayKey(date) >= dayKey(since)
}
