// Package runlog keeps a durable history of pipeline runs.
//
// The history is reporting-only: nothing in the reconciliation engine
// reads it back, so a lost or corrupt database never affects
// processing. SQLite with WAL mode keeps it readable while a run is
// writing.
package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on runs.started_at
const currentSchemaVersion = 1

// Store provides durable storage for run history records.
type Store struct {
	db *sql.DB
}

// Record is one completed pipeline run.
type Record struct {
	ID                  string
	Jurisdiction        string
	StartedAt           time.Time
	FinishedAt          time.Time
	Bills               int
	VoteEvents          int
	Events              int
	LinkedEvents        int
	DeferredEvents      int
	PlaceholdersDeleted int
	Orphans             int
}

// Open creates or opens the run history database at path. Applies
// required pragmas and migrations automatically; safe to call
// repeatedly.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to run history: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under the single-run model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
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

// RecordRun inserts one run record. Re-inserting the same run id is a
// no-op so a repeated flush stays idempotent.
func (s *Store) RecordRun(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, jurisdiction, started_at, finished_at, bills, vote_events, events,
		 linked_events, deferred_events, placeholders_deleted, orphans)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Jurisdiction,
		rec.StartedAt.UTC().Format(time.RFC3339),
		rec.FinishedAt.UTC().Format(time.RFC3339),
		rec.Bills,
		rec.VoteEvents,
		rec.Events,
		rec.LinkedEvents,
		rec.DeferredEvents,
		rec.PlaceholdersDeleted,
		rec.Orphans,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, jurisdiction, started_at, finished_at, bills, vote_events,
		       events, linked_events, deferred_events, placeholders_deleted, orphans
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var started, finished string
		err := rows.Scan(
			&rec.ID, &rec.Jurisdiction, &started, &finished,
			&rec.Bills, &rec.VoteEvents, &rec.Events,
			&rec.LinkedEvents, &rec.DeferredEvents,
			&rec.PlaceholdersDeleted, &rec.Orphans,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			rec.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339, finished); err == nil {
			rec.FinishedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on
// user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		// CREATE INDEX IF NOT EXISTS is safe on databases created
		// before the index was part of schema.sql.
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
