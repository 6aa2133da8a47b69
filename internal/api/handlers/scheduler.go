package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dhima/proactive-scheduler/internal/api/response"
	"github.com/dhima/proactive-scheduler/internal/logging"
	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StateSource exposes the merged scheduler state projection.
type StateSource interface {
	GetSchedulerState() models.SchedulerState
}

// JobRunner dispatches a trigger outside its schedule.
type JobRunner interface {
	RunJobNow(ctx context.Context, id string, force bool) (bool, error)
}

// AlertGateway exposes alert delivery records and user actions.
type AlertGateway interface {
	HandleAction(ctx context.Context, alertID string, action models.AlertAction)
	Delivery(alertID string) (models.Delivery, bool)
	Status() (authorized bool, lastDeliveryErr string)
}

// SchedulerHandler handles scheduler state, on-demand runs and alert actions.
type SchedulerHandler struct {
	logger  logging.Logger
	state   StateSource
	runner  JobRunner
	gateway AlertGateway
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(logger logging.Logger, state StateSource, runner JobRunner, gateway AlertGateway) *SchedulerHandler {
	return &SchedulerHandler{
		logger:  logger.With(zap.String("handler", "scheduler")),
		state:   state,
		runner:  runner,
		gateway: gateway,
	}
}

// GetState returns the UI-facing snapshot: next event, today's jobs and
// active meeting warnings.
func (h *SchedulerHandler) GetState(c *gin.Context) {
	response.OK(c, h.state.GetSchedulerState())
}

type runNowQuery struct {
	Force bool `form:"force"`
}

type runNowResult struct {
	TriggerID  string `json:"trigger_id"`
	Dispatched bool   `json:"dispatched"`
}

// RunNow dispatches a trigger immediately. Daily-scoped triggers that already
// completed today are skipped unless force is set.
func (h *SchedulerHandler) RunNow(c *gin.Context) {
	triggerID := c.Param("id")

	var query runNowQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	dispatched, err := h.runner.RunJobNow(c.Request.Context(), triggerID, query.Force)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrUnknownTrigger):
			response.NotFound(c, "trigger not found")
		case errors.Is(err, scheduler.ErrNotRunnable):
			response.Conflict(c, err.Error(), nil)
		default:
			h.logger.Error("run now failed",
				zap.String("trigger_id", triggerID),
				zap.Error(err),
				zap.String("request_id", response.GetRequestID(c)),
			)
			response.InternalServerError(c, "failed to dispatch trigger")
		}
		return
	}

	h.logger.Info("manual run requested",
		zap.String("trigger_id", triggerID),
		zap.Bool("force", query.Force),
		zap.Bool("dispatched", dispatched),
		zap.String("request_id", response.GetRequestID(c)),
	)

	response.Success(c, http.StatusAccepted, runNowResult{
		TriggerID:  triggerID,
		Dispatched: dispatched,
	}, "")
}

type alertActionRequest struct {
	Action models.AlertAction `json:"action" binding:"required"`
}

// AlertAction applies a user action (respond, snooze, dismiss) to a
// delivered alert. Actions on already-resolved alerts are no-ops.
func (h *SchedulerHandler) AlertAction(c *gin.Context) {
	alertID := c.Param("id")

	var req alertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	switch req.Action {
	case models.AlertActionRespond, models.AlertActionSnooze, models.AlertActionDismiss:
	default:
		response.BadRequest(c, "unknown action", string(req.Action))
		return
	}

	delivery, ok := h.gateway.Delivery(alertID)
	if !ok {
		response.NotFound(c, "alert not found")
		return
	}

	h.gateway.HandleAction(c.Request.Context(), alertID, req.Action)

	h.logger.Info("alert action applied",
		zap.String("alert_id", alertID),
		zap.String("action", string(req.Action)),
		zap.String("prior_state", string(delivery.State)),
		zap.String("request_id", response.GetRequestID(c)),
	)

	updated, _ := h.gateway.Delivery(alertID)
	response.OK(c, updated)
}

// GetAlert returns the delivery record of a single alert.
func (h *SchedulerHandler) GetAlert(c *gin.Context) {
	alertID := c.Param("id")

	delivery, ok := h.gateway.Delivery(alertID)
	if !ok {
		response.NotFound(c, "alert not found")
		return
	}

	response.OK(c, delivery)
}

type notificationStatus struct {
	Authorized        bool   `json:"authorized"`
	LastDeliveryError string `json:"last_delivery_error,omitempty"`
}

// NotificationStatus reports whether notification delivery is authorized and
// the most recent delivery failure, if any.
func (h *SchedulerHandler) NotificationStatus(c *gin.Context) {
	authorized, lastErr := h.gateway.Status()
	response.OK(c, notificationStatus{
		Authorized:        authorized,
		LastDeliveryError: lastErr,
	})
}
