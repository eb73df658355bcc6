// Package memory keeps runs and the weekly goal in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"example.com/runtracker/internal/domain"
)

// Store is the default RunStore; its contents live for the process lifetime.
type Store struct {
	mu   sync.RWMutex
	runs []domain.Run
	goal float64
}

// NewStore constructs an empty store with the given weekly goal.
// A non-positive goal falls back to domain.DefaultWeeklyGoalKm.
func NewStore(goalKm float64) *Store {
	if goalKm <= 0 {
		goalKm = domain.DefaultWeeklyGoalKm
	}
	return &Store{goal: goalKm}
}

// Append implements domain.RunStore.
func (s *Store) Append(ctx context.Context, run domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, run)
	return nil
}

// List returns a copy of every run in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Run, len(s.runs))
	copy(out, s.runs)
	return out, nil
}

// ListSince returns runs dated on or after since, in insertion order.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if domain.OnOrAfterDay(run.Date, since) {
			out = append(out, run)
		}
	}
	return out, nil
}

// WeeklyGoal implements domain.RunStore.
func (s *Store) WeeklyGoal(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal, nil
}

// SetWeeklyGoal implements domain.RunStore.
func (s *Store) SetWeeklyGoal(ctx context.Context, km float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = km
	return nil
}
