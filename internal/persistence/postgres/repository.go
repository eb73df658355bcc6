// Package postgres stores runs and the weekly goal in Postgres and records
// outbox events in the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/events"
	"example.com/runtracker/internal/format"
)

const weeklyGoalAggregateID = "weekly_goal"

// Repository provides Postgres-backed persistence for runs, the weekly goal and outbox events.
type Repository struct {
	pool        *pgxpool.Pool
	defaultGoal float64
}

// NewRepository constructs a Repository. defaultGoal is reported until a goal is stored.
func NewRepository(pool *pgxpool.Pool, defaultGoal float64) *Repository {
	if defaultGoal <= 0 {
		defaultGoal = domain.DefaultWeeklyGoalKm
	}
	return &Repository{pool: pool, defaultGoal: defaultGoal}
}

// Append persists the run and its run.recorded event inside a single transaction.
func (r *Repository) Append(ctx context.Context, run domain.Run) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertRun = `INSERT INTO runs (run_id, run_date, distance_km, duration_min, avg_heart_rate, workout_type, note, recorded_at)
        VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, insertRun,
		run.ID,
		format.ISODate(run.Date),
		run.DistanceKm,
		run.DurationMin,
		run.AvgHeartRate,
		string(run.WorkoutType),
		run.Note,
		run.RecordedAt,
	)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, "run", run.ID, events.TypeRunRecorded, run.ID, events.RunRecorded{
		RunID:        run.ID,
		Date:         format.ISODate(run.Date),
		DistanceKm:   run.DistanceKm,
		DurationMin:  run.DurationMin,
		AvgHeartRate: run.AvgHeartRate,
		WorkoutType:  string(run.WorkoutType),
		Note:         run.Note,
		PaceMinPerKm: run.PaceMinPerKm(),
		RecordedAt:   run.RecordedAt,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// List returns every run in entry order.
func (r *Repository) List(ctx context.Context) ([]domain.Run, error) {
	return r.queryRuns(ctx, `SELECT run_id, run_date, distance_km, duration_min, avg_heart_rate, workout_type, note, recorded_at
        FROM runs ORDER BY seq`)
}

// ListSince returns runs dated on or after since's calendar day, in entry order.
func (r *Repository) ListSince(ctx context.Context, since time.Time) ([]domain.Run, error) {
	return r.queryRuns(ctx, `SELECT run_id, run_date, distance_km, duration_min, avg_heart_rate, workout_type, note, recorded_at
        FROM runs WHERE run_date >= $1::date ORDER BY seq`, format.ISODate(since))
}

func (r *Repository) queryRuns(ctx context.Context, query string, args ...interface{}) ([]domain.Run, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Run, 0)
	for rows.Next() {
		var run domain.Run
		var workoutType string
		if err := rows.Scan(&run.ID, &run.Date, &run.DistanceKm, &run.DurationMin, &run.AvgHeartRate, &workoutType, &run.Note, &run.RecordedAt); err != nil {
			return nil, err
		}
		run.WorkoutType = domain.WorkoutType(workoutType)
		results = append(results, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// WeeklyGoal returns the stored goal or the configured default.
func (r *Repository) WeeklyGoal(ctx context.Context) (float64, error) {
	var goal float64
	err := r.pool.QueryRow(ctx, `SELECT goal_km FROM weekly_goal WHERE id = 1`).Scan(&goal)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.defaultGoal, nil
	}
	if err != nil {
		return 0, err
	}
	return goal, nil
}

// SetWeeklyGoal overwrites the goal and records a goal.updated event.
func (r *Repository) SetWeeklyGoal(ctx context.Context, km float64) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	previous := r.defaultGoal
	err = tx.QueryRow(ctx, `SELECT goal_km FROM weekly_goal WHERE id = 1 FOR UPDATE`).Scan(&previous)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	now := time.Now().UTC()
	if _, err = tx.Exec(ctx,
		`INSERT INTO weekly_goal (id, goal_km, updated_at) VALUES (1, $1, $2)
         ON CONFLICT (id) DO UPDATE SET goal_km = EXCLUDED.goal_km, updated_at = EXCLUDED.updated_at`,
		km, now,
	); err != nil {
		return err
	}

	dedupe := fmt.Sprintf("%s:%d", weeklyGoalAggregateID, now.UnixNano())
	if err = r.insertOutbox(ctx, tx, "goal", weeklyGoalAggregateID, events.TypeGoalUpdated, dedupe, events.GoalUpdated{
		WeeklyGoalKm:   km,
		PreviousGoalKm: previous,
		UpdatedAt:      now,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType, dedupeID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		aggregateID,
		body,
		fmt.Sprintf("%s:%s", dedupeID, eventType),
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeRunRecorded: {
		Topic:         events.TopicRunEvents,
		SchemaSubject: events.TopicRunEvents + "-value",
	},
	events.TypeGoalUpdated: {
		Topic:         events.TopicGoalEvents,
		SchemaSubject: events.TopicGoalEvents + "-value",
	},
}
