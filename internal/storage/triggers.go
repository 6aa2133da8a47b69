package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
)

// LoadTriggers returns every persisted trigger. Called once at startup so the
// scheduler can reconstruct its state; an interrupted firing leaves no trace
// here and is never assumed to have completed.
func (c *SQLiteClient) LoadTriggers(ctx context.Context) ([]models.Trigger, error) {
	query := `
		SELECT id, name, type, status, spec, next_run, last_run_at, run_count, created_at, updated_at
		FROM triggers
		ORDER BY created_at ASC
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load triggers: %w", err)
	}
	defer rows.Close()

	var triggers []models.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating triggers: %w", err)
	}
	return triggers, nil
}

// SaveTrigger upserts the full trigger row, including the runtime fields the
// scheduler mutates on firing (next_run, last_run_at, run_count, status).
func (c *SQLiteClient) SaveTrigger(ctx context.Context, t *models.Trigger) error {
	query := `
		INSERT INTO triggers (id, name, type, status, spec, next_run, last_run_at, run_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			spec = excluded.spec,
			next_run = excluded.next_run,
			last_run_at = excluded.last_run_at,
			run_count = excluded.run_count,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := c.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Type, t.Status, string(t.Spec),
		nullableTime(t.NextRun), nullableTime(t.LastRunAt), t.RunCount,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save trigger: %w", err)
	}
	return nil
}

// GetTrigger fetches a single trigger by ID.
func (c *SQLiteClient) GetTrigger(ctx context.Context, triggerID string) (*models.Trigger, error) {
	query := `
		SELECT id, name, type, status, spec, next_run, last_run_at, run_count, created_at, updated_at
		FROM triggers
		WHERE id = ?
	`

	row := c.db.QueryRowContext(ctx, query, triggerID)
	t, err := scanTrigger(row)
	if err == sql.ErrNoRows {
		return nil, ErrTriggerNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTriggers returns triggers matching the query plus the total count.
func (c *SQLiteClient) ListTriggers(ctx context.Context, query models.ListTriggersQuery) ([]models.Trigger, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if query.Type != "" {
		where += " AND type = ?"
		args = append(args, query.Type)
	}
	if query.Status != "" {
		where += " AND status = ?"
		args = append(args, query.Status)
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM triggers " + where
	if err := c.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count triggers: %w", err)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}

	listSQL := `
		SELECT id, name, type, status, spec, next_run, last_run_at, run_count, created_at, updated_at
		FROM triggers ` + where + `
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, (page-1)*limit)

	rows, err := c.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []models.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, 0, err
		}
		triggers = append(triggers, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating triggers: %w", err)
	}
	return triggers, total, nil
}

// DeleteTrigger removes a trigger and its idempotence keys.
func (c *SQLiteClient) DeleteTrigger(ctx context.Context, triggerID string) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM triggers WHERE id = ?", triggerID)
	if err != nil {
		return fmt.Errorf("failed to delete trigger: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTriggerNotFound
	}

	if _, err := c.db.ExecContext(ctx, "DELETE FROM daily_completions WHERE trigger_id = ?", triggerID); err != nil {
		return fmt.Errorf("failed to delete completion keys: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrigger(row rowScanner) (*models.Trigger, error) {
	var t models.Trigger
	var spec string
	var nextRun, lastRunAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.Name, &t.Type, &t.Status, &spec,
		&nextRun, &lastRunAt, &t.RunCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan trigger: %w", err)
	}

	t.Spec = []byte(spec)
	if nextRun.Valid {
		utc := nextRun.Time.UTC()
		t.NextRun = &utc
	}
	if lastRunAt.Valid {
		utc := lastRunAt.Time.UTC()
		t.LastRunAt = &utc
	}
	return &t, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
