package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dhima/proactive-scheduler/internal/api/response"
	"github.com/dhima/proactive-scheduler/internal/logging"
	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResultService defines the task result query operations the handler needs.
type ResultService interface {
	Query(ctx context.Context, query models.ListResultsQuery) (models.ResultListResponse, error)
	Get(ctx context.Context, resultID string) (*models.ResultResponse, error)
	Stats(ctx context.Context) (models.ResultStats, error)
}

// ResultHandler handles task result history requests.
type ResultHandler struct {
	logger  logging.Logger
	service ResultService
}

// NewResultHandler creates a new result handler.
func NewResultHandler(logger logging.Logger, service ResultService) *ResultHandler {
	return &ResultHandler{
		logger:  logger.With(zap.String("handler", "result")),
		service: service,
	}
}

// ListResults lists task results, newest first, with truncated output.
func (h *ResultHandler) ListResults(c *gin.Context) {
	var query models.ListResultsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Warn("invalid list results query",
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.BadRequest(c, "invalid query parameters", err.Error())
		return
	}

	result, err := h.service.Query(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to list results",
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.InternalServerError(c, "failed to list results")
		return
	}

	response.Success(c, http.StatusOK, result, "")
}

// GetStats reports aggregate run counts and total agent spend.
func (h *ResultHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to aggregate result stats",
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.InternalServerError(c, "failed to aggregate result stats")
		return
	}

	response.OK(c, stats)
}

// GetResult retrieves a single task result with its full output.
func (h *ResultHandler) GetResult(c *gin.Context) {
	resultID := c.Param("id")

	result, err := h.service.Get(c.Request.Context(), resultID)
	if err != nil {
		if errors.Is(err, storage.ErrResultNotFound) {
			response.NotFound(c, "result not found")
			return
		}
		h.logger.Error("failed to get result",
			zap.String("result_id", resultID),
			zap.Error(err),
			zap.String("request_id", response.GetRequestID(c)),
		)
		response.InternalServerError(c, "failed to get result")
		return
	}

	response.OK(c, result)
}
