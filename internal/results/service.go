package results

import (
	"context"
	"fmt"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"go.uber.org/zap"
)

// listOutputLimit truncates output in list views; the full text stays
// available on the single-result endpoint.
const listOutputLimit = 500

// ResultStore defines persistence required by the result service.
type ResultStore interface {
	CreateResult(ctx context.Context, result *models.AgentTaskResult) error
	GetResult(ctx context.Context, resultID string) (*models.AgentTaskResult, error)
	ListResults(ctx context.Context, query models.ListResultsQuery) ([]models.AgentTaskResult, int64, error)
	ResultStats(ctx context.Context) (models.ResultStats, error)
}

// Service records and queries agent task results.
type Service struct {
	store  ResultStore
	logger *zap.Logger
}

// NewService creates a result service.
func NewService(store ResultStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Record persists one firing outcome. Implements scheduler.ResultRecorder.
func (s *Service) Record(ctx context.Context, result *models.AgentTaskResult) error {
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	if err := s.store.CreateResult(ctx, result); err != nil {
		s.logger.Error("failed to record task result",
			zap.String("result_id", result.ID),
			zap.String("trigger_id", result.TriggerID),
			zap.Error(err))
		return fmt.Errorf("record task result: %w", err)
	}

	s.logger.Info("task result recorded",
		zap.String("result_id", result.ID),
		zap.String("trigger_id", result.TriggerID),
		zap.String("status", string(result.Status)),
		zap.Float64("cost_usd", result.CostUSD))
	return nil
}

// Query retrieves task results with filtering and pagination. Output is
// truncated and failed runs carry the failure indicator for the view layer.
func (s *Service) Query(ctx context.Context, query models.ListResultsQuery) (models.ResultListResponse, error) {
	results, total, err := s.store.ListResults(ctx, query)
	if err != nil {
		return models.ResultListResponse{}, fmt.Errorf("query task results: %w", err)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}

	responses := make([]models.ResultResponse, 0, len(results))
	for i := range results {
		responses = append(responses, buildResultResponse(&results[i], true))
	}

	return models.ResultListResponse{
		Results: responses,
		Pagination: models.Pagination{
			CurrentPage:  page,
			PageSize:     limit,
			TotalPages:   totalPages,
			TotalRecords: total,
		},
	}, nil
}

// Get retrieves a single task result with its full output.
func (s *Service) Get(ctx context.Context, resultID string) (*models.ResultResponse, error) {
	result, err := s.store.GetResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	resp := buildResultResponse(result, false)
	return &resp, nil
}

// Stats aggregates run counts and total spend across all recorded results.
func (s *Service) Stats(ctx context.Context) (models.ResultStats, error) {
	stats, err := s.store.ResultStats(ctx)
	if err != nil {
		return models.ResultStats{}, fmt.Errorf("aggregate task result stats: %w", err)
	}
	return stats, nil
}

func buildResultResponse(r *models.AgentTaskResult, truncate bool) models.ResultResponse {
	output := r.Output
	if truncate && len(output) > listOutputLimit {
		output = output[:listOutputLimit] + "…"
	}
	return models.ResultResponse{
		ID:           r.ID,
		TriggerID:    r.TriggerID,
		Timestamp:    r.Timestamp,
		Status:       r.Status,
		Output:       output,
		CostUSD:      r.CostUSD,
		ErrorMessage: r.ErrorMessage,
		Source:       r.Source,
		Failed:       r.Status == models.ResultStatusFailed,
	}
}
