package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/runner"
	"github.com/google/uuid"
)

// FakeRunner simulates agent task execution. Set Err to fail every run,
// Gate to hold runs open until the channel is closed, or NilResult to
// return neither result nor error.
type FakeRunner struct {
	mu        sync.Mutex
	Calls     []string // trigger IDs in dispatch order
	Err       error
	Output    string
	Gate      chan struct{}
	NilResult bool
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Output: "done"}
}

func (f *FakeRunner) Run(ctx context.Context, t *models.Trigger) (*models.AgentTaskResult, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, t.ID)
	gate := f.Gate
	err := f.Err
	output := f.Output
	nilResult := f.NilResult
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, runner.NewError(runner.ErrCancelled, ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	if nilResult {
		return nil, nil
	}
	return &models.AgentTaskResult{
		ID:        uuid.New().String(),
		TriggerID: t.ID,
		Timestamp: time.Now().UTC(),
		Status:    models.ResultStatusSuccess,
		Output:    output,
	}, nil
}

// CallCount returns how many runs were dispatched.
func (f *FakeRunner) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
