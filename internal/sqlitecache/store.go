// Package sqlitecache is the persistent implementation of
// scorecache.Store, backed by SQLite through database/sql. It lets
// repeated runs over the same design reuse evaluation results, and it
// records the per-run search trace for post-hoc reporting.
package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vk/nocforge/internal/candidate"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed score cache and trace recorder.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and applies the
// schema. WAL keeps concurrent readers cheap while evaluator workers
// write.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scores (
		key INTEGER PRIMARY KEY,
		score JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS iterations (
		run_id TEXT NOT NULL,
		iteration INTEGER NOT NULL,
		best_score JSON NOT NULL,
		evaluated INTEGER NOT NULL,
		rejected INTEGER NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, iteration)
	);

	CREATE INDEX IF NOT EXISTS idx_iterations_run ON iterations(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the cached score for key, if present.
func (s *Store) Get(ctx context.Context, key uint64) (candidate.Score, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM scores WHERE key = ?`, int64(key)).Scan(&payload)
	if err == sql.ErrNoRows {
		return candidate.Score{}, false, nil
	}
	if err != nil {
		return candidate.Score{}, false, fmt.Errorf("failed to query score: %w", err)
	}
	var score candidate.Score
	if err := json.Unmarshal(payload, &score); err != nil {
		return candidate.Score{}, false, fmt.Errorf("failed to unmarshal score: %w", err)
	}
	return score, true, nil
}

// Put records the score for key. INSERT OR REPLACE keeps racing writers
// harmless: every writer for a key carries the same pure value.
func (s *Store) Put(ctx context.Context, key uint64, score candidate.Score) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to marshal score: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scores (key, score) VALUES (?, ?)`, int64(key), payload)
	if err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}
	return nil
}

// RecordIteration appends one search-trace row for the given run.
func (s *Store) RecordIteration(ctx context.Context, runID string, iteration int, best candidate.Score, evaluated, rejected int) error {
	payload, err := json.Marshal(best)
	if err != nil {
		return fmt.Errorf("failed to marshal best score: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO iterations (run_id, iteration, best_score, evaluated, rejected, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, iteration, payload, evaluated, rejected, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record iteration: %w", err)
	}
	return nil
}
