package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *SQLiteClient {
	t.Helper()
	client, err := Open(filepath.Join(t.TempDir(), "scheduler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func storedTrigger(id string) *models.Trigger {
	next := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	return &models.Trigger{
		ID:      id,
		Name:    "morning check-in",
		Type:    models.TriggerTypeCheckin,
		Status:  models.TriggerStatusActive,
		Spec:    json.RawMessage(`{"kind":"daily_checkin","time":{"hour":9,"minute":0}}`),
		NextRun: &next,
	}
}

func TestSaveTrigger_RoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SaveTrigger(ctx, storedTrigger("t1")))

	got, err := c.GetTrigger(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "morning check-in", got.Name)
	assert.Equal(t, models.TriggerTypeCheckin, got.Type)
	assert.Equal(t, models.TriggerStatusActive, got.Status)
	require.NotNil(t, got.NextRun)
	assert.Equal(t, time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC), got.NextRun.UTC())
	assert.JSONEq(t, `{"kind":"daily_checkin","time":{"hour":9,"minute":0}}`, string(got.Spec))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveTrigger_UpsertsRuntimeFields(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	trig := storedTrigger("t1")
	require.NoError(t, c.SaveTrigger(ctx, trig))

	fired := time.Date(2025, 6, 11, 9, 0, 1, 0, time.UTC)
	trig.LastRunAt = &fired
	trig.RunCount = 3
	trig.Status = models.TriggerStatusPaused
	trig.NextRun = nil
	require.NoError(t, c.SaveTrigger(ctx, trig))

	got, err := c.GetTrigger(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.RunCount)
	assert.Equal(t, models.TriggerStatusPaused, got.Status)
	assert.Nil(t, got.NextRun)
	require.NotNil(t, got.LastRunAt)
	assert.Equal(t, fired, got.LastRunAt.UTC())
}

func TestGetTrigger_NotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetTrigger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTriggerNotFound)
}

func TestListTriggers_Filters(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	active := storedTrigger("t1")
	require.NoError(t, c.SaveTrigger(ctx, active))

	paused := storedTrigger("t2")
	paused.Status = models.TriggerStatusPaused
	require.NoError(t, c.SaveTrigger(ctx, paused))

	manual := storedTrigger("t3")
	manual.Type = models.TriggerTypeManual
	manual.Spec = json.RawMessage(`{}`)
	require.NoError(t, c.SaveTrigger(ctx, manual))

	all, total, err := c.ListTriggers(ctx, models.ListTriggersQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), total)

	pausedOnly, total, err := c.ListTriggers(ctx, models.ListTriggersQuery{Status: "paused"})
	require.NoError(t, err)
	require.Len(t, pausedOnly, 1)
	assert.Equal(t, "t2", pausedOnly[0].ID)
	assert.Equal(t, int64(1), total)

	manualOnly, _, err := c.ListTriggers(ctx, models.ListTriggersQuery{Type: "manual"})
	require.NoError(t, err)
	require.Len(t, manualOnly, 1)
	assert.Equal(t, "t3", manualOnly[0].ID)
}

func TestDeleteTrigger_ClearsCompletions(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SaveTrigger(ctx, storedTrigger("t1")))
	require.NoError(t, c.MarkDailyCompletion(ctx, "t1", "2025-06-10", time.Now().UTC()))

	require.NoError(t, c.DeleteTrigger(ctx, "t1"))

	_, err := c.GetTrigger(ctx, "t1")
	assert.ErrorIs(t, err, ErrTriggerNotFound)

	done, err := c.HasDailyCompletion(ctx, "t1", "2025-06-10")
	require.NoError(t, err)
	assert.False(t, done)

	assert.ErrorIs(t, c.DeleteTrigger(ctx, "t1"), ErrTriggerNotFound)
}

func TestDailyCompletion(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	done, err := c.HasDailyCompletion(ctx, "t1", "2025-06-10")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, c.MarkDailyCompletion(ctx, "t1", "2025-06-10", at))
	// Marking the same day twice is fine.
	require.NoError(t, c.MarkDailyCompletion(ctx, "t1", "2025-06-10", at.Add(time.Hour)))

	done, err = c.HasDailyCompletion(ctx, "t1", "2025-06-10")
	require.NoError(t, err)
	assert.True(t, done)

	// A different day is a different key.
	done, err = c.HasDailyCompletion(ctx, "t1", "2025-06-11")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestClaimWarning_AtMostOnce(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	at := time.Now().UTC()

	claimed, err := c.ClaimWarning(ctx, "ev1", 15, "2025-06-10", at)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = c.ClaimWarning(ctx, "ev1", 15, "2025-06-10", at)
	require.NoError(t, err)
	assert.False(t, claimed)

	// Different lead and different day are independent keys.
	claimed, err = c.ClaimWarning(ctx, "ev1", 5, "2025-06-10", at)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = c.ClaimWarning(ctx, "ev1", 15, "2025-06-11", at)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestSnoozeCount(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	n, err := c.SnoozeCount(ctx, "meeting-ev1-15")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, c.SetSnoozeCount(ctx, "meeting-ev1-15", 2))
	require.NoError(t, c.SetSnoozeCount(ctx, "meeting-ev1-15", 3))

	n, err = c.SnoozeCount(ctx, "meeting-ev1-15")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestResults_RoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	msg := "agent unreachable"
	results := []models.AgentTaskResult{
		{ID: "r1", TriggerID: "t1", Timestamp: base, Status: models.ResultStatusSuccess, Output: "ok", CostUSD: 0.01, Source: models.RunSourceScheduler, CreatedAt: base},
		{ID: "r2", TriggerID: "t1", Timestamp: base.Add(time.Hour), Status: models.ResultStatusFailed, ErrorMessage: &msg, Source: models.RunSourceManual, CreatedAt: base.Add(time.Hour)},
		{ID: "r3", TriggerID: "t2", Timestamp: base.Add(2 * time.Hour), Status: models.ResultStatusSuccess, Output: "fine", Source: models.RunSourceScheduler, CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range results {
		require.NoError(t, c.CreateResult(ctx, &results[i]))
	}

	got, err := c.GetResult(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, msg, *got.ErrorMessage)
	assert.Equal(t, models.RunSourceManual, got.Source)

	_, err = c.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrResultNotFound)

	// Newest first.
	list, total, err := c.ListResults(ctx, models.ListResultsQuery{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "r3", list[0].ID)

	byTrigger, total, err := c.ListResults(ctx, models.ListResultsQuery{TriggerID: "t1"})
	require.NoError(t, err)
	assert.Len(t, byTrigger, 2)
	assert.Equal(t, int64(2), total)

	failed, _, err := c.ListResults(ctx, models.ListResultsQuery{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "r2", failed[0].ID)
}

func TestResultStats_AggregatesAcrossTriggers(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	empty, err := c.ResultStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.TotalRuns)

	results := []models.AgentTaskResult{
		{ID: "r1", TriggerID: "t1", Timestamp: base, Status: models.ResultStatusSuccess, CostUSD: 0.02, Source: models.RunSourceScheduler, CreatedAt: base},
		{ID: "r2", TriggerID: "t1", Timestamp: base.Add(time.Hour), Status: models.ResultStatusFailed, CostUSD: 0.01, Source: models.RunSourceScheduler, CreatedAt: base},
		{ID: "r3", TriggerID: "t2", Timestamp: base.Add(2 * time.Hour), Status: models.ResultStatusSuccess, CostUSD: 0.03, Source: models.RunSourceManual, CreatedAt: base},
	}
	for i := range results {
		require.NoError(t, c.CreateResult(ctx, &results[i]))
	}

	stats, err := c.ResultStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRuns)
	assert.Equal(t, int64(2), stats.SuccessCount)
	assert.Equal(t, int64(1), stats.FailedCount)
	assert.InDelta(t, 0.06, stats.TotalCostUSD, 1e-9)
}
