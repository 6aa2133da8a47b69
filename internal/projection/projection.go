package projection

import (
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/pkg/clock"
)

// EngineSnapshot produces the scheduler's side of the state.
type EngineSnapshot interface {
	Snapshot(now time.Time) models.SchedulerState
}

// WarningSource supplies the current meeting warning set.
type WarningSource interface {
	Warnings() []models.MeetingWarning
}

// Service is the read-only projection for presentation layers. It never
// mutates scheduler state and is safe to call from any goroutine.
type Service struct {
	engine   EngineSnapshot
	warnings WarningSource
	clock    clock.Clock
}

// NewService wires the projection.
func NewService(engine EngineSnapshot, warnings WarningSource, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{engine: engine, warnings: warnings, clock: clk}
}

// GetSchedulerState returns the snapshot: next firing instant, today's jobs,
// and active meeting warnings.
func (s *Service) GetSchedulerState() models.SchedulerState {
	state := s.engine.Snapshot(s.clock.Now())
	if s.warnings != nil {
		state.MeetingWarnings = s.warnings.Warnings()
	}
	if state.TodaysJobs == nil {
		state.TodaysJobs = []models.JobSummary{}
	}
	if state.MeetingWarnings == nil {
		state.MeetingWarnings = []models.MeetingWarning{}
	}
	return state
}
