package fakes

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/storage"
)

var ErrNotFound = errors.New("not found")

// FakeTriggerStore is an in-memory trigger store. It satisfies both the
// engine-facing and the service-facing store interfaces.
type FakeTriggerStore struct {
	mu        sync.Mutex
	Triggers  map[string]models.Trigger
	DailyDone map[string]map[string]time.Time // triggerID -> localDate -> completion time
	SaveErr   error
}

func NewFakeTriggerStore() *FakeTriggerStore {
	return &FakeTriggerStore{
		Triggers:  make(map[string]models.Trigger),
		DailyDone: make(map[string]map[string]time.Time),
	}
}

func (f *FakeTriggerStore) LoadTriggers(_ context.Context) ([]models.Trigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Trigger, 0, len(f.Triggers))
	for _, t := range f.Triggers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeTriggerStore) SaveTrigger(_ context.Context, t *models.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	cpy := *t
	if cpy.CreatedAt.IsZero() {
		cpy.CreatedAt = time.Now().UTC()
	}
	cpy.UpdatedAt = time.Now().UTC()
	f.Triggers[cpy.ID] = cpy
	return nil
}

func (f *FakeTriggerStore) GetTrigger(_ context.Context, triggerID string) (*models.Trigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Triggers[triggerID]
	if !ok {
		return nil, storage.ErrTriggerNotFound
	}
	cpy := t
	return &cpy, nil
}

func (f *FakeTriggerStore) ListTriggers(_ context.Context, query models.ListTriggersQuery) ([]models.Trigger, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Trigger, 0)
	for _, t := range f.Triggers {
		if query.Type != "" && string(t.Type) != query.Type {
			continue
		}
		if query.Status != "" && string(t.Status) != query.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
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
		return []models.Trigger{}, total, nil
	}
	end := start + query.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (f *FakeTriggerStore) DeleteTrigger(_ context.Context, triggerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Triggers[triggerID]; !ok {
		return storage.ErrTriggerNotFound
	}
	delete(f.Triggers, triggerID)
	delete(f.DailyDone, triggerID)
	return nil
}

func (f *FakeTriggerStore) MarkDailyCompletion(_ context.Context, triggerID, localDate string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DailyDone[triggerID] == nil {
		f.DailyDone[triggerID] = make(map[string]time.Time)
	}
	f.DailyDone[triggerID][localDate] = at
	return nil
}

func (f *FakeTriggerStore) HasDailyCompletion(_ context.Context, triggerID, localDate string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.DailyDone[triggerID][localDate]
	return ok, nil
}
