package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
)

// FakeAlertSink captures delivered alerts.
type FakeAlertSink struct {
	mu     sync.Mutex
	Alerts []models.ProactiveAlert
}

func (f *FakeAlertSink) Deliver(_ context.Context, alert models.ProactiveAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Alerts = append(f.Alerts, alert)
	return nil
}

func (f *FakeAlertSink) Tick(time.Time) {}

// Delivered returns a copy of the captured alerts.
func (f *FakeAlertSink) Delivered() []models.ProactiveAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ProactiveAlert, len(f.Alerts))
	copy(out, f.Alerts)
	return out
}

// FakeSnoozeStore is an in-memory snooze counter store.
type FakeSnoozeStore struct {
	mu     sync.Mutex
	Counts map[string]int
}

func NewFakeSnoozeStore() *FakeSnoozeStore {
	return &FakeSnoozeStore{Counts: make(map[string]int)}
}

func (f *FakeSnoozeStore) SnoozeCount(_ context.Context, alertKey string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Counts[alertKey], nil
}

func (f *FakeSnoozeStore) SetSnoozeCount(_ context.Context, alertKey string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Counts[alertKey] = count
	return nil
}

// FakeWarningStore tracks claimed meeting warning keys.
type FakeWarningStore struct {
	mu      sync.Mutex
	Claimed map[string]bool
}

func NewFakeWarningStore() *FakeWarningStore {
	return &FakeWarningStore{Claimed: make(map[string]bool)}
}

func (f *FakeWarningStore) ClaimWarning(_ context.Context, eventID string, leadMinutes int, localDate string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s|%d|%s", eventID, leadMinutes, localDate)
	if f.Claimed[key] {
		return false, nil
	}
	f.Claimed[key] = true
	return true, nil
}
