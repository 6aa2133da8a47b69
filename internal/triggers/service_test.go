package triggers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/recurrence"
	"github.com/dhima/proactive-scheduler/internal/storage"
	"github.com/dhima/proactive-scheduler/internal/testutil/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRegistrar persists like the engine would, without arming.
type stubRegistrar struct {
	store   *fakes.FakeTriggerStore
	failErr error
	removed []string
}

func (r *stubRegistrar) Register(ctx context.Context, t *models.Trigger) error {
	if r.failErr != nil {
		return r.failErr
	}
	return r.store.SaveTrigger(ctx, t)
}

func (r *stubRegistrar) Remove(id string) {
	r.removed = append(r.removed, id)
}

func newTestService() (*Service, *fakes.FakeTriggerStore, *stubRegistrar) {
	store := fakes.NewFakeTriggerStore()
	reg := &stubRegistrar{store: store}
	return NewService(store, reg), store, reg
}

func validWeeklyRequest() models.CreateTriggerRequest {
	return models.CreateTriggerRequest{
		Name: "weekly report",
		Type: models.TriggerTypeRecurring,
		Spec: json.RawMessage(`{"kind":"weekly","weekdays":[1],"time":{"hour":9,"minute":0}}`),
	}
}

func TestCreateTrigger(t *testing.T) {
	svc, store, _ := newTestService()

	resp, err := svc.CreateTrigger(context.Background(), validWeeklyRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "weekly report", resp.Name)
	assert.Equal(t, models.TriggerStatusActive, resp.Status)
	assert.Contains(t, store.Triggers, resp.ID)
}

func TestCreateTrigger_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct {
		name string
		req  models.CreateTriggerRequest
	}{
		{"blank name", models.CreateTriggerRequest{Name: "   ", Type: models.TriggerTypeManual}},
		{"manual with spec", models.CreateTriggerRequest{
			Name: "oops", Type: models.TriggerTypeManual,
			Spec: json.RawMessage(`{"kind":"daily_checkin","time":{"hour":9,"minute":0}}`),
		}},
		{"kind does not match type", models.CreateTriggerRequest{
			Name: "mismatch", Type: models.TriggerTypeTime,
			Spec: json.RawMessage(`{"kind":"weekly","weekdays":[1],"time":{"hour":9,"minute":0}}`),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTrigger(context.Background(), tc.req)
			require.Error(t, err)
			var vErr ValidationError
			assert.True(t, errors.As(err, &vErr), "expected ValidationError, got %T", err)
		})
	}
}

func TestCreateTrigger_MalformedSpec(t *testing.T) {
	svc, store, _ := newTestService()

	req := validWeeklyRequest()
	req.Spec = json.RawMessage(`{"kind":"weekly"}`)

	_, err := svc.CreateTrigger(context.Background(), req)
	require.Error(t, err)
	var parseErr recurrence.ScheduleParseError
	assert.True(t, errors.As(err, &parseErr))
	assert.Empty(t, store.Triggers)
}

func TestCreateTrigger_RegistrarRejection(t *testing.T) {
	svc, _, reg := newTestService()
	reg.failErr = fmt.Errorf("arming failed")

	_, err := svc.CreateTrigger(context.Background(), validWeeklyRequest())
	assert.Error(t, err)
}

func TestGetTrigger_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetTrigger(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrTriggerNotFound)
}

func TestUpdateTrigger(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.CreateTrigger(context.Background(), validWeeklyRequest())
	require.NoError(t, err)

	name := "renamed"
	paused := models.TriggerStatusPaused
	resp, err := svc.UpdateTrigger(context.Background(), created.ID, models.UpdateTriggerRequest{
		Name:   &name,
		Status: &paused,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", resp.Name)
	assert.Equal(t, models.TriggerStatusPaused, resp.Status)
}

func TestUpdateTrigger_Rejections(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.CreateTrigger(context.Background(), validWeeklyRequest())
	require.NoError(t, err)

	blank := "  "
	_, err = svc.UpdateTrigger(context.Background(), created.ID, models.UpdateTriggerRequest{Name: &blank})
	var vErr ValidationError
	assert.True(t, errors.As(err, &vErr))

	// A replacement spec must keep the trigger type's kind.
	_, err = svc.UpdateTrigger(context.Background(), created.ID, models.UpdateTriggerRequest{
		Spec: json.RawMessage(`{"kind":"one_shot","at":"2025-07-01T18:00:00Z"}`),
	})
	assert.True(t, errors.As(err, &vErr))

	_, err = svc.UpdateTrigger(context.Background(), "missing", models.UpdateTriggerRequest{})
	assert.ErrorIs(t, err, storage.ErrTriggerNotFound)
}

func TestDeleteTrigger(t *testing.T) {
	svc, store, reg := newTestService()
	created, err := svc.CreateTrigger(context.Background(), validWeeklyRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTrigger(context.Background(), created.ID))
	assert.NotContains(t, store.Triggers, created.ID)
	assert.Equal(t, []string{created.ID}, reg.removed)

	err = svc.DeleteTrigger(context.Background(), created.ID)
	assert.ErrorIs(t, err, storage.ErrTriggerNotFound)
}

func TestListTriggers_Pagination(t *testing.T) {
	svc, _, _ := newTestService()
	for i := 0; i < 25; i++ {
		req := validWeeklyRequest()
		req.Name = fmt.Sprintf("trigger %02d", i)
		_, err := svc.CreateTrigger(context.Background(), req)
		require.NoError(t, err)
	}

	resp, err := svc.ListTriggers(context.Background(), models.ListTriggersQuery{})
	require.NoError(t, err)
	assert.Len(t, resp.Triggers, 20)
	assert.Equal(t, 1, resp.Pagination.CurrentPage)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.Equal(t, int64(25), resp.Pagination.TotalRecords)

	resp, err = svc.ListTriggers(context.Background(), models.ListTriggersQuery{Page: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Triggers, 5)
}
