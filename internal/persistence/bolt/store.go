// Package bolt persists runs and the weekly goal in a single-file bbolt database.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"example.com/runtracker/internal/domain"
)

var (
	bucketRuns     = []byte("runs")
	bucketSettings = []byte("settings")
	keyWeeklyGoal  = []byte("weekly_goal_km")
)

// Store is a domain.RunStore backed by bbolt. Runs are keyed by a big-endian
// bucket sequence so cursor order is entry order.
type Store struct {
	db          *bolt.DB
	defaultGoal float64
}

// Open creates or opens the database at path.
func Open(path string, defaultGoal float64) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("bolt store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRuns); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketSettings)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	if defaultGoal <= 0 {
		defaultGoal = domain.DefaultWeeklyGoalKm
	}
	return &Store{db: db, defaultGoal: defaultGoal}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append implements domain.RunStore.
func (s *Store) Append(ctx context.Context, run domain.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRuns)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(sequenceKey(seq), data)
	})
}

// List implements domain.RunStore.
func (s *Store) List(ctx context.Context) ([]domain.Run, error) {
	return s.scan(ctx, func(domain.Run) bool { return true })
}

// ListSince implements domain.RunStore.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]domain.Run, error) {
	return s.scan(ctx, func(run domain.Run) bool { return domain.OnOrAfterDay(run.Date, since) })
}

func (s *Store) scan(ctx context.Context, keep func(domain.Run) bool) ([]domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Run, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run domain.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decode run %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if keep(run) {
				out = append(out, run)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WeeklyGoal returns the stored goal or the default when none was set.
func (s *Store) WeeklyGoal(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	goal := s.defaultGoal
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSettings).Get(keyWeeklyGoal)
		if raw == nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return fmt.Errorf("decode weekly goal: %w", err)
		}
		goal = parsed
		return nil
	})
	return goal, err
}

// SetWeeklyGoal implements domain.RunStore.
func (s *Store) SetWeeklyGoal(ctx context.Context, km float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put(keyWeeklyGoal, []byte(strconv.FormatFloat(km, 'f', -1, 64)))
	})
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
