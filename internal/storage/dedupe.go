package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Idempotence bookkeeping. Keys are (trigger, local date) for daily-scoped
// triggers and (event, lead minutes, local date) for meeting warnings; local
// dates are formatted as 2006-01-02 in the spec's configured location.

// MarkDailyCompletion records that a trigger completed on the given local
// date. Safe to call repeatedly for the same day.
func (c *SQLiteClient) MarkDailyCompletion(ctx context.Context, triggerID, localDate string, at time.Time) error {
	query := `
		INSERT INTO daily_completions (trigger_id, local_date, completed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(trigger_id, local_date) DO UPDATE SET completed_at = excluded.completed_at
	`
	if _, err := c.db.ExecContext(ctx, query, triggerID, localDate, at.UTC()); err != nil {
		return fmt.Errorf("failed to mark daily completion: %w", err)
	}
	return nil
}

// HasDailyCompletion reports whether the trigger already completed on the
// given local date.
func (c *SQLiteClient) HasDailyCompletion(ctx context.Context, triggerID, localDate string) (bool, error) {
	var n int
	query := "SELECT COUNT(*) FROM daily_completions WHERE trigger_id = ? AND local_date = ?"
	if err := c.db.QueryRowContext(ctx, query, triggerID, localDate).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check daily completion: %w", err)
	}
	return n > 0, nil
}

// ClaimWarning atomically claims the (event, lead, local date) key. Returns
// true when this call won the claim; false when the warning already fired
// today. INSERT OR IGNORE makes repeated evaluation emit at most one warning.
func (c *SQLiteClient) ClaimWarning(ctx context.Context, eventID string, leadMinutes int, localDate string, at time.Time) (bool, error) {
	query := `
		INSERT OR IGNORE INTO warning_marks (event_id, lead_minutes, local_date, fired_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := c.db.ExecContext(ctx, query, eventID, leadMinutes, localDate, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to claim warning key: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// SnoozeCount returns the persisted snooze counter for an alert key, zero
// when the key has never been snoozed.
func (c *SQLiteClient) SnoozeCount(ctx context.Context, alertKey string) (int, error) {
	var n int
	query := "SELECT snooze_count FROM alert_snoozes WHERE alert_key = ?"
	err := c.db.QueryRowContext(ctx, query, alertKey).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snooze count: %w", err)
	}
	return n, nil
}

// SetSnoozeCount persists the snooze counter for an alert key.
func (c *SQLiteClient) SetSnoozeCount(ctx context.Context, alertKey string, count int) error {
	query := `
		INSERT INTO alert_snoozes (alert_key, snooze_count, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(alert_key) DO UPDATE SET snooze_count = excluded.snooze_count, updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, alertKey, count, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set snooze count: %w", err)
	}
	return nil
}
