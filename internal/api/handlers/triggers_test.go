package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dhima/proactive-scheduler/internal/logging"
	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/recurrence"
	"github.com/dhima/proactive-scheduler/internal/storage"
	"github.com/dhima/proactive-scheduler/internal/triggers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeTriggerSvc struct {
	createResp *models.TriggerResponse
	createErr  error
	listResp   models.TriggerListResponse
	listErr    error
	getResp    *models.TriggerResponse
	getErr     error
	updateResp *models.TriggerResponse
	updateErr  error
	deleteErr  error
}

func (f *fakeTriggerSvc) CreateTrigger(ctx context.Context, req models.CreateTriggerRequest) (*models.TriggerResponse, error) {
	return f.createResp, f.createErr
}
func (f *fakeTriggerSvc) ListTriggers(ctx context.Context, query models.ListTriggersQuery) (models.TriggerListResponse, error) {
	if f.listResp.Triggers != nil {
		return f.listResp, f.listErr
	}
	return models.TriggerListResponse{Triggers: []models.TriggerResponse{}, Pagination: models.Pagination{}}, f.listErr
}
func (f *fakeTriggerSvc) GetTrigger(ctx context.Context, id string) (*models.TriggerResponse, error) {
	return f.getResp, f.getErr
}
func (f *fakeTriggerSvc) UpdateTrigger(ctx context.Context, id string, req models.UpdateTriggerRequest) (*models.TriggerResponse, error) {
	return f.updateResp, f.updateErr
}
func (f *fakeTriggerSvc) DeleteTrigger(ctx context.Context, id string) error { return f.deleteErr }

func triggerRouter(svc TriggerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTriggerHandler(logging.NewNoOpLogger(), svc)
	r := gin.New()
	r.POST("/api/v1/triggers", h.CreateTrigger)
	r.GET("/api/v1/triggers", h.ListTriggers)
	r.GET("/api/v1/triggers/:id", h.GetTrigger)
	r.PUT("/api/v1/triggers/:id", h.UpdateTrigger)
	r.DELETE("/api/v1/triggers/:id", h.DeleteTrigger)
	return r
}

func TestCreateTrigger_BadJSON(t *testing.T) {
	r := triggerRouter(&fakeTriggerSvc{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTrigger_Success(t *testing.T) {
	now := time.Now().UTC()
	svc := &fakeTriggerSvc{createResp: &models.TriggerResponse{
		ID: "123", Name: "check-in", Type: models.TriggerTypeCheckin,
		Status: models.TriggerStatusActive, CreatedAt: now, UpdatedAt: now,
	}}
	r := triggerRouter(svc)

	body, _ := json.Marshal(map[string]any{
		"name": "check-in",
		"type": "checkin",
		"spec": map[string]any{"kind": "daily_checkin", "time": map[string]int{"hour": 9, "minute": 0}},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"123"`)
}

func TestCreateTrigger_ValidationErrorMapsTo400(t *testing.T) {
	svc := &fakeTriggerSvc{createErr: triggers.NewValidationError("name is required")}
	r := triggerRouter(svc)

	body, _ := json.Marshal(map[string]any{"name": "x", "type": "manual"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
}

func TestCreateTrigger_SpecErrorMapsTo400(t *testing.T) {
	svc := &fakeTriggerSvc{createErr: recurrence.NewScheduleParseError("invalid weekly spec")}
	r := triggerRouter(svc)

	body, _ := json.Marshal(map[string]any{"name": "x", "type": "recurring", "spec": map[string]any{"kind": "weekly"}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid recurrence spec")
}

func TestGetTrigger_NotFoundMapsTo404(t *testing.T) {
	svc := &fakeTriggerSvc{getErr: storage.ErrTriggerNotFound}
	r := triggerRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/triggers/missing", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTriggers_InvalidStatusFilter(t *testing.T) {
	r := triggerRouter(&fakeTriggerSvc{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/triggers?status=bogus", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTriggers_Success(t *testing.T) {
	svc := &fakeTriggerSvc{listResp: models.TriggerListResponse{
		Triggers:   []models.TriggerResponse{{ID: "t1", Name: "one"}},
		Pagination: models.Pagination{CurrentPage: 1, PageSize: 20, TotalPages: 1, TotalRecords: 1},
	}}
	r := triggerRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/triggers?status=active", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_records":1`)
}

func TestUpdateTrigger_Success(t *testing.T) {
	svc := &fakeTriggerSvc{updateResp: &models.TriggerResponse{ID: "t1", Name: "renamed"}}
	r := triggerRouter(svc)

	body, _ := json.Marshal(map[string]any{"name": "renamed"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/triggers/t1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"renamed"`)
}

func TestDeleteTrigger_NoContent(t *testing.T) {
	r := triggerRouter(&fakeTriggerSvc{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/triggers/t1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
