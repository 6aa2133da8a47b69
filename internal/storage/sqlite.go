package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrTriggerNotFound indicates the requested trigger does not exist.
var ErrTriggerNotFound = errors.New("trigger not found")

// ErrResultNotFound indicates the requested task result does not exist.
var ErrResultNotFound = errors.New("task result not found")

// SQLiteClient wraps direct SQL access for triggers, task results, and
// idempotence bookkeeping. A single local file serves the whole engine.
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient wires a sql.DB; pass a configured instance from main.
func NewSQLiteClient(db *sql.DB) *SQLiteClient {
	return &SQLiteClient{db: db}
}

// Open opens (creating if needed) the database file and applies migrations.
func Open(path string) (*SQLiteClient, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY between the engine and the API.
	db.SetMaxOpenConns(1)

	client := &SQLiteClient{db: db}
	if err := client.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return client, nil
}

// Close closes the underlying database handle.
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// Migrate creates the schema when missing. Idempotent.
func (c *SQLiteClient) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS triggers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		spec TEXT NOT NULL,
		next_run TIMESTAMP,
		last_run_at TIMESTAMP,
		run_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_results (
		id TEXT PRIMARY KEY,
		trigger_id TEXT NOT NULL,
		fired_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		output TEXT NOT NULL DEFAULT '',
		cost_usd REAL NOT NULL DEFAULT 0,
		error_message TEXT,
		source TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_task_results_trigger ON task_results(trigger_id);
	CREATE INDEX IF NOT EXISTS idx_task_results_fired_at ON task_results(fired_at);

	CREATE TABLE IF NOT EXISTS daily_completions (
		trigger_id TEXT NOT NULL,
		local_date TEXT NOT NULL,
		completed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (trigger_id, local_date)
	);

	CREATE TABLE IF NOT EXISTS warning_marks (
		event_id TEXT NOT NULL,
		lead_minutes INTEGER NOT NULL,
		local_date TEXT NOT NULL,
		fired_at TIMESTAMP NOT NULL,
		PRIMARY KEY (event_id, lead_minutes, local_date)
	);

	CREATE TABLE IF NOT EXISTS alert_snoozes (
		alert_key TEXT PRIMARY KEY,
		snooze_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	);
	`

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
