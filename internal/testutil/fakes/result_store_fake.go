package fakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/storage"
)

// FakeResultStore is an in-memory result store.
type FakeResultStore struct {
	mu      sync.Mutex
	Results map[string]models.AgentTaskResult
}

func NewFakeResultStore() *FakeResultStore {
	return &FakeResultStore{Results: make(map[string]models.AgentTaskResult)}
}

func (f *FakeResultStore) CreateResult(_ context.Context, result *models.AgentTaskResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := *result
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	f.Results[r.ID] = r
	return nil
}

func (f *FakeResultStore) GetResult(_ context.Context, resultID string) (*models.AgentTaskResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.Results[resultID]
	if !ok {
		return nil, storage.ErrResultNotFound
	}
	cpy := r
	return &cpy, nil
}

func (f *FakeResultStore) ListResults(_ context.Context, query models.ListResultsQuery) ([]models.AgentTaskResult, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AgentTaskResult, 0)
	for _, r := range f.Results {
		if query.TriggerID != "" && r.TriggerID != query.TriggerID {
			continue
		}
		if query.Status != "" && string(r.Status) != query.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	total := int64(len(out))
	// naive pagination
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	start := (query.Page - 1) * query.Limit
	if start >= len(out) {
		return []models.AgentTaskResult{}, total, nil
	}
	end := start + query.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (f *FakeResultStore) ResultStats(_ context.Context) (models.ResultStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats models.ResultStats
	for _, r := range f.Results {
		stats.TotalRuns++
		switch r.Status {
		case models.ResultStatusSuccess:
			stats.SuccessCount++
		case models.ResultStatusFailed:
			stats.FailedCount++
		}
		stats.TotalCostUSD += r.CostUSD
	}
	return stats, nil
}

// FakeResultRecorder captures recorded results in order.
type FakeResultRecorder struct {
	mu      sync.Mutex
	Results []models.AgentTaskResult
}

func (f *FakeResultRecorder) Record(_ context.Context, result *models.AgentTaskResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results = append(f.Results, *result)
	return nil
}

// Recorded returns a copy of the captured results.
func (f *FakeResultRecorder) Recorded() []models.AgentTaskResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AgentTaskResult, len(f.Results))
	copy(out, f.Results)
	return out
}
