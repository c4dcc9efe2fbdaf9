// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of extraction runs and the entries
// each run failed to extract.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/asset-extract/pkg/types"
)

const (
	dbFile          = "history.db"
	defaultMaxRuns  = 20
	// Fixed-width UTC timestamps sort chronologically as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrRunNotFound is returned when a run id is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// Ledger is an open run history database.
type Ledger struct {
	db *sql.DB
}

// Run is one recorded extraction.
type Run struct {
	ID          string    `json:"id" yaml:"id"`
	Manifest    string    `json:"manifest" yaml:"manifest"`
	ObjectsDir  string    `json:"objects_dir" yaml:"objects_dir"`
	OutputDir   string    `json:"output_dir" yaml:"output_dir"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`
	Success     int       `json:"success" yaml:"success"`
	Failed      int       `json:"failed" yaml:"failed"`
	Total       int       `json:"total" yaml:"total"`
	Bytes       int64     `json:"bytes" yaml:"bytes"`
	Interrupted bool      `json:"interrupted" yaml:"interrupted"`
}

// Failure is one entry a run did not extract.
type Failure struct {
	RunID   string        `json:"run_id" yaml:"run_id"`
	Path    string        `json:"path" yaml:"path"`
	Hash    string        `json:"hash" yaml:"hash"`
	Size    int64         `json:"size" yaml:"size"`
	Outcome types.Outcome `json:"outcome" yaml:"outcome"`
	Error   string        `json:"error" yaml:"error"`
}

// DefaultPath returns ~/.config/asset-extract/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".config", "asset-extract", dbFile), nil
}

// Open opens or creates the ledger database at path, creating its directory
// and schema as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			manifest TEXT NOT NULL,
			objects_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			success INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			total INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			interrupted INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS failures (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			hash TEXT NOT NULL,
			size INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_run_id ON failures(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished (or interrupted) run and its failed entries in a
// single transaction and returns the stored Run with its new id.
func (l *Ledger) Record(ctx context.Context, cfg types.ExtractionConfig, s *types.Summary) (Run, error) {
	run := Run{
		ID:          uuid.NewString(),
		Manifest:    cfg.ManifestPath,
		ObjectsDir:  cfg.ObjectsDir,
		OutputDir:   cfg.OutputDir,
		StartedAt:   s.StartedAt.UTC(),
		FinishedAt:  s.FinishedAt.UTC(),
		Success:     s.Success,
		Failed:      s.Failed,
		Total:       s.Total,
		Bytes:       s.Bytes,
		Interrupted: s.Interrupted,
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, manifest, objects_dir, output_dir, started_at, finished_at,
			success, failed, total, bytes, interrupted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Manifest, run.ObjectsDir, run.OutputDir,
		run.StartedAt.Format(timestampLayout), run.FinishedAt.Format(timestampLayout),
		run.Success, run.Failed, run.Total, run.Bytes, boolToInt(run.Interrupted),
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO failures (run_id, path, hash, size, outcome, error) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("preparing failure insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range s.Failures() {
		if _, err := stmt.ExecContext(ctx, run.ID, r.Entry.Path, r.Entry.Hash, r.Entry.Size, string(r.Outcome), r.Message()); err != nil {
			return Run{}, fmt.Errorf("inserting failure %s: %w", r.Entry.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("committing run: %w", err)
	}
	return run, nil
}

// Runs returns up to limit runs, newest first. A limit of zero or less uses
// the default of 20.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultMaxRuns
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, manifest, objects_dir, output_dir, started_at, finished_at,
			success, failed, total, bytes, interrupted
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns the run with the given id.
func (l *Ledger) Get(ctx context.Context, id string) (Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, manifest, objects_dir, output_dir, started_at, finished_at,
			success, failed, total, bytes, interrupted
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Failures returns the failed entries of a run in the order they were recorded.
func (l *Ledger) Failures(ctx context.Context, runID string) ([]Failure, error) {
	if _, err := l.Get(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, path, hash, size, outcome, COALESCE(error, '')
		FROM failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		var outcome string
		if err := rows.Scan(&f.RunID, &f.Path, &f.Hash, &f.Size, &outcome, &f.Error); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		f.Outcome = types.Outcome(outcome)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run               Run
		started, finished string
		interrupted       int
	)
	err := s.Scan(&run.ID, &run.Manifest, &run.ObjectsDir, &run.OutputDir,
		&started, &finished, &run.Success, &run.Failed, &run.Total, &run.Bytes, &interrupted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	if run.StartedAt, err = time.Parse(timestampLayout, started); err != nil {
		return Run{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timestampLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parsing finished_at: %w", err)
	}
	run.Interrupted = interrupted != 0
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
