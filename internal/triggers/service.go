package triggers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/recurrence"
	"github.com/dhima/proactive-scheduler/internal/storage"
	"github.com/google/uuid"
)

// TriggerStore defines the storage methods required by the trigger service.
type TriggerStore interface {
	GetTrigger(ctx context.Context, triggerID string) (*models.Trigger, error)
	ListTriggers(ctx context.Context, query models.ListTriggersQuery) ([]models.Trigger, int64, error)
	DeleteTrigger(ctx context.Context, triggerID string) error
}

// Registrar is the scheduler-side registration surface. Registration
// validates the spec, arms the trigger, and persists it.
type Registrar interface {
	Register(ctx context.Context, t *models.Trigger) error
	Remove(id string)
}

// kindByType pins each trigger type to its recurrence kind so a stored
// trigger can never carry a spec of the wrong shape.
var kindByType = map[models.TriggerType]recurrence.Kind{
	models.TriggerTypeTime:      recurrence.KindOneShot,
	models.TriggerTypeRecurring: recurrence.KindWeekly,
	models.TriggerTypeEvent:     recurrence.KindRelativeToEvent,
	models.TriggerTypeCheckin:   recurrence.KindDailyCheckin,
}

// Service encapsulates trigger management logic.
type Service struct {
	store     TriggerStore
	registrar Registrar
}

// NewService creates a trigger service.
func NewService(store TriggerStore, registrar Registrar) *Service {
	return &Service{store: store, registrar: registrar}
}

// CreateTrigger validates the request, registers the trigger with the
// scheduler (which arms and persists it), and returns the stored view.
func (s *Service) CreateTrigger(ctx context.Context, req models.CreateTriggerRequest) (*models.TriggerResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, NewValidationError("name is required")
	}
	if err := validateSpecShape(req.Type, req.Spec); err != nil {
		return nil, err
	}

	trigger := models.Trigger{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Type:   req.Type,
		Status: models.TriggerStatusActive,
		Spec:   req.Spec,
	}

	if err := s.registrar.Register(ctx, &trigger); err != nil {
		return nil, err
	}

	stored, err := s.store.GetTrigger(ctx, trigger.ID)
	if err != nil {
		return nil, err
	}
	resp := buildTriggerResponse(stored)
	return &resp, nil
}

// ListTriggers returns triggers along with pagination metadata.
func (s *Service) ListTriggers(ctx context.Context, query models.ListTriggersQuery) (models.TriggerListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	triggers, total, err := s.store.ListTriggers(ctx, query)
	if err != nil {
		return models.TriggerListResponse{}, err
	}

	responses := make([]models.TriggerResponse, 0, len(triggers))
	for i := range triggers {
		responses = append(responses, buildTriggerResponse(&triggers[i]))
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(query.Limit) - 1) / int64(query.Limit))
	}

	return models.TriggerListResponse{
		Triggers: responses,
		Pagination: models.Pagination{
			CurrentPage:  query.Page,
			PageSize:     query.Limit,
			TotalPages:   totalPages,
			TotalRecords: total,
		},
	}, nil
}

// GetTrigger fetches details for a trigger.
func (s *Service) GetTrigger(ctx context.Context, triggerID string) (*models.TriggerResponse, error) {
	trigger, err := s.store.GetTrigger(ctx, triggerID)
	if err != nil {
		if errors.Is(err, storage.ErrTriggerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get trigger: %w", err)
	}

	resp := buildTriggerResponse(trigger)
	return &resp, nil
}

// UpdateTrigger applies user edits and re-registers so the scheduler
// re-validates and re-arms.
func (s *Service) UpdateTrigger(ctx context.Context, triggerID string, req models.UpdateTriggerRequest) (*models.TriggerResponse, error) {
	current, err := s.store.GetTrigger(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewValidationError("name cannot be empty")
		}
		current.Name = name
	}
	if req.Status != nil {
		current.Status = *req.Status
	}
	if len(req.Spec) > 0 {
		if err := validateSpecShape(current.Type, req.Spec); err != nil {
			return nil, err
		}
		current.Spec = req.Spec
	}

	if err := s.registrar.Register(ctx, current); err != nil {
		return nil, err
	}

	refreshed, err := s.store.GetTrigger(ctx, triggerID)
	if err != nil {
		return nil, err
	}
	resp := buildTriggerResponse(refreshed)
	return &resp, nil
}

// DeleteTrigger removes the trigger from the scheduler and the store.
func (s *Service) DeleteTrigger(ctx context.Context, triggerID string) error {
	if err := s.store.DeleteTrigger(ctx, triggerID); err != nil {
		return err
	}
	s.registrar.Remove(triggerID)
	return nil
}

// validateSpecShape rejects a spec whose tagged kind does not match the
// trigger type. Manual triggers carry no spec at all.
func validateSpecShape(triggerType models.TriggerType, raw []byte) error {
	if triggerType == models.TriggerTypeManual {
		if len(raw) > 0 {
			return NewValidationError("manual triggers do not take a recurrence spec")
		}
		return nil
	}

	spec, err := recurrence.Parse(raw)
	if err != nil {
		return err
	}
	if want := kindByType[triggerType]; spec.Kind != want {
		return NewValidationError("trigger type %s requires a %s spec, got %s", triggerType, want, spec.Kind)
	}
	return nil
}

func buildTriggerResponse(trigger *models.Trigger) models.TriggerResponse {
	return models.TriggerResponse{
		ID:        trigger.ID,
		Name:      trigger.Name,
		Type:      trigger.Type,
		Status:    trigger.Status,
		Spec:      trigger.Spec,
		NextRun:   trigger.NextRun,
		LastRunAt: trigger.LastRunAt,
		RunCount:  trigger.RunCount,
		CreatedAt: trigger.CreatedAt,
		UpdatedAt: trigger.UpdatedAt,
	}
}
