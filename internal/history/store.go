package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reclaw/conformance/internal/conformance"
)

//go:embed schema.sql
var schemaSQL string

// Store persists conformance reports in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at the given path and applies pragmas
// and schema. Idempotent: safe to call against an existing archive.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent recording.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// RunSummary is one archived run without its outcomes.
type RunSummary struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	BaseURL   string    `json:"baseUrl"`
	Total     int       `json:"total"`
	Failed    int       `json:"failed"`
}

// RecordRun archives a report with its ordered outcomes in one transaction
// and returns the new run id.
func (s *Store) RecordRun(ctx context.Context, baseURL string, startedAt time.Time, report conformance.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, base_url, total, failed)
		VALUES (?, ?, ?, ?)
	`, startedAt.UTC().Format(time.RFC3339), baseURL, report.Total, report.Failed)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}

	for position, outcome := range report.Outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (run_id, position, name, passed, detail)
			VALUES (?, ?, ?, ?, ?)
		`, runID, position, outcome.Name, outcome.Passed, outcome.Detail)
		if err != nil {
			return 0, fmt.Errorf("record outcome %q: %w", outcome.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, base_url, total, failed
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var summary RunSummary
		var startedAt string
		if err := rows.Scan(&summary.ID, &startedAt, &summary.BaseURL, &summary.Total, &summary.Failed); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("list runs: bad timestamp %q: %w", startedAt, err)
		}
		summary.StartedAt = ts
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Outcomes returns the ordered outcomes of one archived run.
func (s *Store) Outcomes(ctx context.Context, runID int64) ([]conformance.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, passed, detail
		FROM outcomes
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("outcomes for run %d: %w", runID, err)
	}
	defer rows.Close()

	var outcomes []conformance.Outcome
	for rows.Next() {
		var outcome conformance.Outcome
		if err := rows.Scan(&outcome.Name, &outcome.Passed, &outcome.Detail); err != nil {
			return nil, fmt.Errorf("outcomes for run %d: %w", runID, err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}
