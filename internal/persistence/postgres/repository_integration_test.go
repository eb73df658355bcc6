//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/events"
)

func TestRepositoryRoundTripWithOutbox(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	repo := NewRepository(pool, 0)

	goal, err := repo.WeeklyGoal(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultWeeklyGoalKm, goal)

	moscow := time.FixedZone("MSK", 3*3600)
	first := domain.Run{
		ID:           uuid.NewString(),
		Date:         time.Date(2024, time.April, 30, 0, 0, 0, 0, moscow),
		DistanceKm:   12,
		DurationMin:  60,
		AvgHeartRate: 150,
		WorkoutType:  domain.WorkoutLong,
		RecordedAt:   time.Date(2024, time.April, 30, 20, 0, 0, 0, moscow),
	}
	second := domain.Run{
		ID:           uuid.NewString(),
		Date:         time.Date(2024, time.May, 1, 0, 0, 0, 0, moscow),
		DistanceKm:   10.5,
		DurationMin:  52,
		AvgHeartRate: 145,
		WorkoutType:  domain.WorkoutTempo,
		Note:         `hills, "steep"`,
		RecordedAt:   time.Date(2024, time.May, 1, 7, 0, 0, 0, moscow),
	}
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	runs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, first.ID, runs[0].ID)
	require.Equal(t, second.Note, runs[1].Note)
	require.Equal(t, "2024-05-01", runs[1].Date.Format(time.DateOnly))

	since, err := repo.ListSince(ctx, time.Date(2024, time.May, 1, 23, 0, 0, 0, moscow))
	require.NoError(t, err)
	require.Len(t, since, 1)
	require.Equal(t, second.ID, since[0].ID)

	require.NoError(t, repo.SetWeeklyGoal(ctx, 80))
	goal, err = repo.WeeklyGoal(ctx)
	require.NoError(t, err)
	require.Equal(t, 80.0, goal)

	var runEvents, goalEvents int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type = $1 AND topic = $2`, events.TypeRunRecorded, events.TopicRunEvents).Scan(&runEvents))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type = $1 AND topic = $2`, events.TypeGoalUpdated, events.TopicGoalEvents).Scan(&goalEvents))
	require.Equal(t, 2, runEvents)
	require.Equal(t, 1, goalEvents)
}

func TestRepositoryRejectsDuplicateRunWithoutOutboxRow(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	repo := NewRepository(pool, 70)

	run := domain.Run{
		ID:           uuid.NewString(),
		Date:         time.Now(),
		DistanceKm:   5,
		DurationMin:  25,
		AvgHeartRate: 140,
		WorkoutType:  domain.WorkoutEasy,
		RecordedAt:   time.Now(),
	}
	require.NoError(t, repo.Append(ctx, run))
	require.Error(t, repo.Append(ctx, run))

	var outboxRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&outboxRows))
	require.Equal(t, 1, outboxRows)
}

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("runtracker"),
		postgrescontainer.WithUsername("runtracker"),
		postgrescontainer.WithPassword("runtracker"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	contents, err := os.ReadFile(resolvePath(t, "../../../db/postgres/migrations/0001_init.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
