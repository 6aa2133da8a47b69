package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dhima/proactive-scheduler/internal/api/response"
	"github.com/dhima/proactive-scheduler/internal/logging"
	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/recurrence"
	"github.com/dhima/proactive-scheduler/internal/storage"
	"github.com/dhima/proactive-scheduler/internal/triggers"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TriggerService defines the trigger management operations the handler needs.
type TriggerService interface {
	CreateTrigger(ctx context.Context, req models.CreateTriggerRequest) (*models.TriggerResponse, error)
	ListTriggers(ctx context.Context, query models.ListTriggersQuery) (models.TriggerListResponse, error)
	GetTrigger(ctx context.Context, triggerID string) (*models.TriggerResponse, error)
	UpdateTrigger(ctx context.Context, triggerID string, req models.UpdateTriggerRequest) (*models.TriggerResponse, error)
	DeleteTrigger(ctx context.Context, triggerID string) error
}

// TriggerHandler handles trigger management requests.
type TriggerHandler struct {
	logger  logging.Logger
	service TriggerService
}

// NewTriggerHandler creates a new trigger handler.
func NewTriggerHandler(logger logging.Logger, service TriggerService) *TriggerHandler {
	return &TriggerHandler{
		logger:  logger.With(zap.String("handler", "trigger")),
		service: service,
	}
}

// CreateTrigger creates a trigger with a recurrence spec and arms it.
func (h *TriggerHandler) CreateTrigger(c *gin.Context) {
	var req models.CreateTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create trigger request",
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	result, err := h.service.CreateTrigger(c.Request.Context(), req)
	if h.handleServiceError(c, err, "create trigger") {
		return
	}

	h.logger.Info("trigger created",
		zap.String("trigger_id", result.ID),
		zap.String("type", string(result.Type)),
		zap.String("request_id", response.GetRequestID(c)),
	)

	response.Created(c, result, "trigger created successfully")
}

// ListTriggers lists triggers with optional filtering and pagination.
func (h *TriggerHandler) ListTriggers(c *gin.Context) {
	var query models.ListTriggersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Warn("invalid list triggers query",
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	result, err := h.service.ListTriggers(c.Request.Context(), query)
	if h.handleServiceError(c, err, "list triggers") {
		return
	}

	response.Success(c, http.StatusOK, result, "")
}

// GetTrigger retrieves details of a specific trigger by ID.
func (h *TriggerHandler) GetTrigger(c *gin.Context) {
	triggerID := c.Param("id")

	result, err := h.service.GetTrigger(c.Request.Context(), triggerID)
	if h.handleServiceError(c, err, "get trigger") {
		return
	}

	response.OK(c, result)
}

// UpdateTrigger applies user edits and re-arms the trigger.
func (h *TriggerHandler) UpdateTrigger(c *gin.Context) {
	triggerID := c.Param("id")

	var req models.UpdateTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update trigger request",
			zap.Error(err),
			zap.String("trigger_id", triggerID),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	result, err := h.service.UpdateTrigger(c.Request.Context(), triggerID, req)
	if h.handleServiceError(c, err, "update trigger") {
		return
	}

	response.OK(c, result)
}

// DeleteTrigger removes a trigger.
func (h *TriggerHandler) DeleteTrigger(c *gin.Context) {
	triggerID := c.Param("id")

	if h.handleServiceError(c, h.service.DeleteTrigger(c.Request.Context(), triggerID), "delete trigger") {
		return
	}

	h.logger.Info("trigger deleted",
		zap.String("trigger_id", triggerID),
		zap.String("request_id", response.GetRequestID(c)),
	)

	response.NoContent(c)
}

// handleServiceError translates service errors to HTTP responses. Returns
// true when a response was written.
func (h *TriggerHandler) handleServiceError(c *gin.Context, err error, op string) bool {
	if err == nil {
		return false
	}

	var validationErr triggers.ValidationError
	var parseErr recurrence.ScheduleParseError

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(c, validationErr.Error(), nil)
	case errors.As(err, &parseErr):
		response.BadRequest(c, "invalid recurrence spec", parseErr.Error())
	case errors.Is(err, storage.ErrTriggerNotFound):
		response.NotFound(c, "trigger not found")
	default:
		h.logger.Error("trigger operation failed",
			zap.String("op", op),
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.InternalServerError(c, "operation failed")
	}
	return true
}
