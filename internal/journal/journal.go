// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal keeps an append-only SQLite log of ingest attempts. Each
// ingest run gets a run ID; every document processed in that run produces
// one row. The journal is advisory: the mapping file stays the ledger of
// record, and journal write failures never fail an ingest.
//
// Like the mapping file, the journal assumes a single writer.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Status is the outcome of one attempt.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Attempt is one journal row.
type Attempt struct {
	ID               int64         `json:"id" yaml:"id"`
	RunID            string        `json:"run_id" yaml:"run_id"`
	Identifier       string        `json:"identifier" yaml:"identifier"`
	OriginalFilename string        `json:"original_filename" yaml:"original_filename"`
	Title            string        `json:"title" yaml:"title"`
	Store            string        `json:"store" yaml:"store"`
	Status           Status        `json:"status" yaml:"status"`
	ErrorKind        string        `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error            string        `json:"error,omitempty" yaml:"error,omitempty"`
	OperationName    string        `json:"operation_name,omitempty" yaml:"operation_name,omitempty"`
	Bytes            int64         `json:"bytes" yaml:"bytes"`
	StartedAt        time.Time     `json:"started_at" yaml:"started_at"`
	Duration         time.Duration `json:"duration" yaml:"duration"`
}

// RunSummary counts the attempts of one run by status.
type RunSummary struct {
	RunID    string
	Uploaded int
	Failed   int
	Skipped  int
}

// Total returns the number of attempts in the run.
func (s RunSummary) Total() int {
	return s.Uploaded + s.Failed + s.Skipped
}

// Journal is an open journal database.
type Journal struct {
	db *sql.DB
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates the journal at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return j, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			identifier TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			title TEXT NOT NULL,
			store TEXT NOT NULL,
			status TEXT NOT NULL,
			error_kind TEXT,
			error TEXT,
			operation_name TEXT,
			bytes INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_run_id ON attempts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_identifier ON attempts(identifier)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record appends one attempt.
func (j *Journal) Record(ctx context.Context, a Attempt) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, identifier, original_filename, title, store, status,
			error_kind, error, operation_name, bytes, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Identifier, a.OriginalFilename, a.Title, a.Store, string(a.Status),
		nullString(a.ErrorKind), nullString(a.Error), nullString(a.OperationName),
		a.Bytes, a.StartedAt.UTC().Format(time.RFC3339Nano), a.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording attempt for %s: %w", a.Identifier, err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first. A non-positive limit
// returns every row.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	query := `SELECT id, run_id, identifier, original_filename, title, store, status,
		COALESCE(error_kind, ''), COALESCE(error, ''), COALESCE(operation_name, ''),
		bytes, started_at, duration_ms
		FROM attempts ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a          Attempt
			status     string
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&a.ID, &a.RunID, &a.Identifier, &a.OriginalFilename, &a.Title, &a.Store,
			&status, &a.ErrorKind, &a.Error, &a.OperationName, &a.Bytes, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		a.Status = Status(status)
		a.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			a.StartedAt = t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attempts: %w", err)
	}
	return out, nil
}

// Summary counts the attempts of one run by status. An unknown run ID
// yields a zero summary.
func (j *Journal) Summary(ctx context.Context, runID string) (RunSummary, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM attempts WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return RunSummary{}, fmt.Errorf("summarizing run %s: %w", runID, err)
	}
	defer rows.Close()

	s := RunSummary{RunID: runID}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return RunSummary{}, fmt.Errorf("scanning summary: %w", err)
		}
		switch Status(status) {
		case StatusUploaded:
			s.Uploaded = n
		case StatusFailed:
			s.Failed = n
		case StatusSkipped:
			s.Skipped = n
		}
	}
	return s, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
