package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dhima/proactive-scheduler/internal/models"
)

// CreateResult inserts a task result row.
func (c *SQLiteClient) CreateResult(ctx context.Context, r *models.AgentTaskResult) error {
	query := `
		INSERT INTO task_results (id, trigger_id, fired_at, status, output, cost_usd, error_message, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errMsg interface{}
	if r.ErrorMessage != nil {
		errMsg = *r.ErrorMessage
	}

	_, err := c.db.ExecContext(ctx, query,
		r.ID, r.TriggerID, r.Timestamp.UTC(), r.Status, r.Output,
		r.CostUSD, errMsg, r.Source, r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create task result: %w", err)
	}
	return nil
}

// GetResult fetches a single task result by ID.
func (c *SQLiteClient) GetResult(ctx context.Context, resultID string) (*models.AgentTaskResult, error) {
	query := `
		SELECT id, trigger_id, fired_at, status, output, cost_usd, error_message, source, created_at
		FROM task_results
		WHERE id = ?
	`

	r, err := scanResult(c.db.QueryRowContext(ctx, query, resultID))
	if err == sql.ErrNoRows {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListResults returns task results matching the query, newest first, plus the
// total count.
func (c *SQLiteClient) ListResults(ctx context.Context, query models.ListResultsQuery) ([]models.AgentTaskResult, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if query.TriggerID != "" {
		where += " AND trigger_id = ?"
		args = append(args, query.TriggerID)
	}
	if query.Status != "" {
		where += " AND status = ?"
		args = append(args, query.Status)
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM task_results " + where
	if err := c.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count task results: %w", err)
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
		SELECT id, trigger_id, fired_at, status, output, cost_usd, error_message, source, created_at
		FROM task_results ` + where + `
		ORDER BY fired_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, (page-1)*limit)

	rows, err := c.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list task results: %w", err)
	}
	defer rows.Close()

	var results []models.AgentTaskResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, *r)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating task results: %w", err)
	}
	return results, total, nil
}

// ResultStats aggregates run counts by status and the total agent spend.
func (c *SQLiteClient) ResultStats(ctx context.Context) (models.ResultStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(cost_usd), 0)
		FROM task_results
	`

	var stats models.ResultStats
	err := c.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRuns, &stats.SuccessCount, &stats.FailedCount, &stats.TotalCostUSD,
	)
	if err != nil {
		return models.ResultStats{}, fmt.Errorf("failed to aggregate task result stats: %w", err)
	}
	return stats, nil
}

func scanResult(row rowScanner) (*models.AgentTaskResult, error) {
	var r models.AgentTaskResult
	var errMsg sql.NullString

	err := row.Scan(
		&r.ID, &r.TriggerID, &r.Timestamp, &r.Status, &r.Output,
		&r.CostUSD, &errMsg, &r.Source, &r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task result: %w", err)
	}

	if errMsg.Valid {
		r.ErrorMessage = &errMsg.String
	}
	r.Timestamp = r.Timestamp.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
