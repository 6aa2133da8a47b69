package models

import "time"

// RunSource represents what initiated a firing.
type RunSource string

const (
	RunSourceScheduler RunSource = "scheduler"
	RunSourceManual    RunSource = "manual"
)

// ResultStatus represents the execution status of an agent task run.
type ResultStatus string

const (
	ResultStatusPending ResultStatus = "pending"
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailed  ResultStatus = "failed"
)

// AgentTaskResult represents the recorded outcome of one trigger firing.
type AgentTaskResult struct {
	ID           string       `json:"id"`
	TriggerID    string       `json:"trigger_id"`
	Timestamp    time.Time    `json:"timestamp"`
	Status       ResultStatus `json:"status"`
	Output       string       `json:"output,omitempty"`
	CostUSD      float64      `json:"cost_usd"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	Source       RunSource    `json:"source"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ResultResponse represents the response for a single task result.
// Output is truncated for list views; failed runs carry a failure indicator.
type ResultResponse struct {
	ID           string       `json:"id"`
	TriggerID    string       `json:"trigger_id"`
	Timestamp    time.Time    `json:"timestamp"`
	Status       ResultStatus `json:"status"`
	Output       string       `json:"output,omitempty"`
	CostUSD      float64      `json:"cost_usd"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	Source       RunSource    `json:"source"`
	Failed       bool         `json:"failed"`
}

// ListResultsQuery represents query parameters for listing task results.
type ListResultsQuery struct {
	TriggerID string `form:"trigger_id"`
	Status    string `form:"status" binding:"omitempty,oneof=pending success failed"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ResultListResponse represents the response for listing task results.
type ResultListResponse struct {
	Results    []ResultResponse `json:"results"`
	Pagination Pagination       `json:"pagination"`
}

// ResultStats aggregates recorded runs for the stats endpoint.
type ResultStats struct {
	TotalRuns    int64   `json:"total_runs"`
	SuccessCount int64   `json:"success_count"`
	FailedCount  int64   `json:"failed_count"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}
