package scheduler

import (
	"context"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
)

// TriggerStore defines the persistence operations required by the engine.
// Called at startup (LoadTriggers) and after every status mutation.
type TriggerStore interface {
	LoadTriggers(ctx context.Context) ([]models.Trigger, error)
	SaveTrigger(ctx context.Context, t *models.Trigger) error
	MarkDailyCompletion(ctx context.Context, triggerID, localDate string, at time.Time) error
	HasDailyCompletion(ctx context.Context, triggerID, localDate string) (bool, error)
}

// ResultRecorder persists the outcome of a firing.
type ResultRecorder interface {
	Record(ctx context.Context, result *models.AgentTaskResult) error
}

// AlertSink receives alerts derived from successful firings. Tick drives
// time-based alert transitions (snooze redelivery, expiry) from the engine
// loop.
type AlertSink interface {
	Deliver(ctx context.Context, alert models.ProactiveAlert) error
	Tick(now time.Time)
}
