package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb/v2"
)

// ErrLocked is returned when another process holds the history database.
var ErrLocked = errors.New("history database is in use by another process")

var schema = []string{`
CREATE TABLE IF NOT EXISTS runs (
	id          VARCHAR PRIMARY KEY,
	directory   VARCHAR NOT NULL,
	pattern     VARCHAR NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	converted   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	interrupted BOOLEAN NOT NULL DEFAULT false,
	setup_error VARCHAR NOT NULL DEFAULT ''
)`,
	`ALTER TABLE runs ADD COLUMN IF NOT EXISTS interrupted BOOLEAN DEFAULT false`, `
CREATE TABLE IF NOT EXISTS conversions (
	run_id      VARCHAR NOT NULL,
	seq         INTEGER NOT NULL,
	source      VARCHAR NOT NULL,
	destination VARCHAR NOT NULL,
	status      VARCHAR NOT NULL,
	error_text  VARCHAR NOT NULL DEFAULT '',
	recorded_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, seq)
)`,
}

func InitDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return db, nil
}

// Repository stores batch runs and their per-file outcomes.
type Repository struct {
	db   *sql.DB
	lock *flock.Flock
	now  func() time.Time
}

// Open opens (creating if needed) the history database at path. The file is
// guarded by an exclusive lock on path+".lock" for the repository lifetime.
func Open(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock history database: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	db, err := InitDuckDB(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	return &Repository{db: db, lock: lock, now: time.Now}, nil
}

// Close releases the database and its lock.
func (r *Repository) Close() error {
	err := r.db.Close()
	if unlockErr := r.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

// StartRun records a new run and returns it with a fresh ID.
func (r *Repository) StartRun(directory, pattern string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Directory: directory,
		Pattern:   pattern,
		StartedAt: r.now().UTC(),
	}
	_, err := r.db.Exec(
		`INSERT INTO runs (id, directory, pattern, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Directory, run.Pattern, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	return run, nil
}

// RecordConversion appends one outcome to a run.
func (r *Repository) RecordConversion(c *Conversion) error {
	if c.At.IsZero() {
		c.At = r.now().UTC()
	}
	_, err := r.db.Exec(
		`INSERT INTO conversions (run_id, seq, source, destination, status, error_text, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.Seq, c.Source, c.Destination, c.Status, c.Error, c.At,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversion: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of run.
func (r *Repository) FinishRun(run *Run) error {
	finished := r.now().UTC()
	run.FinishedAt = &finished
	_, err := r.db.Exec(
		`UPDATE runs SET finished_at = ?, converted = ?, failed = ?, skipped = ?, interrupted = ?, setup_error = ? WHERE id = ?`,
		finished, run.Converted, run.Failed, run.Skipped, run.Interrupted, run.SetupError, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// GetRun returns the run with id, or nil if there is none.
func (r *Repository) GetRun(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, directory, pattern, started_at, finished_at, converted, failed, skipped, interrupted, setup_error
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (r *Repository) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT id, directory, pattern, started_at, finished_at, converted, failed, skipped, interrupted, setup_error
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetConversions returns the outcomes of a run in enumeration order.
func (r *Repository) GetConversions(runID string) ([]*Conversion, error) {
	rows, err := r.db.Query(
		`SELECT run_id, seq, source, destination, status, error_text, recorded_at
		 FROM conversions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversions: %w", err)
	}
	defer rows.Close()

	var conversions []*Conversion
	for rows.Next() {
		c := &Conversion{}
		if err := rows.Scan(&c.RunID, &c.Seq, &c.Source, &c.Destination, &c.Status, &c.Error, &c.At); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		conversions = append(conversions, c)
	}
	return conversions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var finished sql.NullTime
	if err := s.Scan(&run.ID, &run.Directory, &run.Pattern, &run.StartedAt, &finished,
		&run.Converted, &run.Failed, &run.Skipped, &run.Interrupted, &run.SetupError); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}
