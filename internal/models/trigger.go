package models

import (
	"encoding/json"
	"time"
)

// TriggerType represents the kind of firing policy a trigger carries.
type TriggerType string

const (
	TriggerTypeTime      TriggerType = "time"      // one-shot absolute instant
	TriggerTypeRecurring TriggerType = "recurring" // weekly weekday set at a local time
	TriggerTypeEvent     TriggerType = "event"     // relative to a calendar event start
	TriggerTypeCheckin   TriggerType = "checkin"   // daily at a local time
	TriggerTypeManual    TriggerType = "manual"    // fired only on explicit request
)

// TriggerStatus represents the lifecycle status of a trigger.
type TriggerStatus string

const (
	TriggerStatusActive    TriggerStatus = "active"
	TriggerStatusPaused    TriggerStatus = "paused"
	TriggerStatusCompleted TriggerStatus = "completed"
	TriggerStatusExpired   TriggerStatus = "expired"
)

// Trigger represents a scheduled unit of work with a firing policy and status.
// Spec holds the recurrence configuration as tagged JSON (see internal/recurrence).
type Trigger struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      TriggerType     `json:"type"`
	Status    TriggerStatus   `json:"status"`
	Spec      json.RawMessage `json:"spec"`
	NextRun   *time.Time      `json:"next_run,omitempty"`
	LastRunAt *time.Time      `json:"last_run_at,omitempty"`
	RunCount  int             `json:"run_count"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DailyScoped reports whether the trigger is limited to one firing per local
// calendar day, keyed by (trigger, local date).
func (t *Trigger) DailyScoped() bool {
	return t.Type == TriggerTypeCheckin || t.Type == TriggerTypeEvent
}

// CreateTriggerRequest represents the request to create a trigger.
type CreateTriggerRequest struct {
	Name string          `json:"name" binding:"required"`
	Type TriggerType     `json:"type" binding:"required,oneof=time recurring event checkin manual"`
	Spec json.RawMessage `json:"spec"`
}

// UpdateTriggerRequest represents the request to update a trigger.
type UpdateTriggerRequest struct {
	Name   *string         `json:"name,omitempty"`
	Status *TriggerStatus  `json:"status,omitempty" binding:"omitempty,oneof=active paused"`
	Spec   json.RawMessage `json:"spec,omitempty"`
}

// TriggerResponse represents the response for a single trigger.
type TriggerResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      TriggerType     `json:"type"`
	Status    TriggerStatus   `json:"status"`
	Spec      json.RawMessage `json:"spec"`
	NextRun   *time.Time      `json:"next_run,omitempty"`
	LastRunAt *time.Time      `json:"last_run_at,omitempty"`
	RunCount  int             `json:"run_count"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ListTriggersQuery represents query parameters for listing triggers.
type ListTriggersQuery struct {
	Type   string `form:"type" binding:"omitempty,oneof=time recurring event checkin manual"`
	Status string `form:"status" binding:"omitempty,oneof=active paused completed expired"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// TriggerListResponse represents the response for listing triggers.
type TriggerListResponse struct {
	Triggers   []TriggerResponse `json:"triggers"`
	Pagination Pagination        `json:"pagination"`
}

// Pagination represents pagination metadata.
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	PageSize     int   `json:"page_size"`
	TotalPages   int   `json:"total_pages"`
	TotalRecords int64 `json:"total_records"`
}
