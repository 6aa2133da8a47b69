package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/dhima/proactive-scheduler/internal/models"
)

// Error kinds the scheduler distinguishes when recording a failed run. Any
// of them leaves the trigger armed for its next occurrence.
var (
	ErrTimeout         = errors.New("runner: execution timed out")
	ErrNetworkFailure  = errors.New("runner: network failure")
	ErrInvalidResponse = errors.New("runner: invalid response")
	ErrCancelled       = errors.New("runner: cancelled")
)

// RunnerError wraps one of the error kinds with call detail.
type RunnerError struct {
	Kind error
	Err  error
}

func (e *RunnerError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.Error(), e.Err)
}

func (e *RunnerError) Unwrap() error { return e.Kind }

// NewError builds a RunnerError of the given kind.
func NewError(kind, err error) *RunnerError {
	return &RunnerError{Kind: kind, Err: err}
}

// TaskRunner executes the work associated with a trigger. The execution
// logic itself is opaque; the scheduler bounds each call with a context
// deadline and records the outcome either way.
type TaskRunner interface {
	Run(ctx context.Context, trigger *models.Trigger) (*models.AgentTaskResult, error)
}
