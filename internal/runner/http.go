package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HTTPRunner dispatches trigger work to the external agent-execution service
// over a single JSON POST. The service is treated as unreliable: every
// failure maps to one of the runner error kinds and never propagates as a
// panic or a blocked call.
type HTTPRunner struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPRunner creates a runner against the given agent endpoint. The
// client carries no timeout of its own; the scheduler bounds each call via
// context.
func NewHTTPRunner(endpoint string, logger *zap.Logger) *HTTPRunner {
	return &HTTPRunner{
		endpoint: endpoint,
		client:   &http.Client{},
		logger:   logger,
	}
}

type runRequest struct {
	TriggerID   string             `json:"trigger_id"`
	TriggerName string             `json:"trigger_name"`
	TriggerType models.TriggerType `json:"trigger_type"`
	Spec        json.RawMessage    `json:"spec,omitempty"`
}

type runResponse struct {
	Output  string  `json:"output"`
	CostUSD float64 `json:"cost_usd"`
}

// Run executes the trigger's work and returns a successful AgentTaskResult
// or a RunnerError of kind timeout, networkFailure, invalidResponse, or
// cancelled.
func (r *HTTPRunner) Run(ctx context.Context, trigger *models.Trigger) (*models.AgentTaskResult, error) {
	body, err := json.Marshal(runRequest{
		TriggerID:   trigger.ID,
		TriggerName: trigger.Name,
		TriggerType: trigger.Type,
		Spec:        trigger.Spec,
	})
	if err != nil {
		return nil, NewError(ErrInvalidResponse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrNetworkFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, NewError(classifyTransport(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("agent endpoint returned non-2xx",
			zap.String("trigger_id", trigger.ID),
			zap.Int("status", resp.StatusCode))
		return nil, NewError(ErrInvalidResponse, errors.New(resp.Status))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, NewError(classifyTransport(ctx, err), err)
	}

	var parsed runResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, NewError(ErrInvalidResponse, err)
	}

	r.logger.Debug("agent run completed",
		zap.String("trigger_id", trigger.ID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Float64("cost_usd", parsed.CostUSD))

	return &models.AgentTaskResult{
		ID:        uuid.New().String(),
		TriggerID: trigger.ID,
		Timestamp: started.UTC(),
		Status:    models.ResultStatusSuccess,
		Output:    parsed.Output,
		CostUSD:   parsed.CostUSD,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// classifyTransport separates deadline, cancellation, and plain network
// failures on a transport-level error.
func classifyTransport(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return ErrCancelled
	default:
		return ErrNetworkFailure
	}
}
