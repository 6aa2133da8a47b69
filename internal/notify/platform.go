package notify

import (
	"context"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"go.uber.org/zap"
)

// Request is what the gateway asks the host notification center to show.
type Request struct {
	ID        string
	Title     string
	Body      string
	Category  models.AlertCategory
	Actions   []models.AlertAction
	DeliverAt time.Time
}

// Platform is the boundary to the host notification center. Implementations
// are expected to be unreliable; the gateway never retries a failed send and
// never lets a platform error escape to the scheduler loop.
//
// User responses come back through Gateway.HandleAction, which the host's
// event loop invokes with the platform's action identifier.
type Platform interface {
	RequestAuthorization(ctx context.Context) error
	Send(ctx context.Context, req Request) error
}

// LogPlatform writes notifications to the log. Used when no host
// notification center is wired, so a headless install still surfaces alerts.
type LogPlatform struct {
	logger *zap.Logger
}

// NewLogPlatform creates the log-backed platform.
func NewLogPlatform(logger *zap.Logger) *LogPlatform {
	return &LogPlatform{logger: logger}
}

func (p *LogPlatform) RequestAuthorization(context.Context) error { return nil }

func (p *LogPlatform) Send(_ context.Context, req Request) error {
	p.logger.Info("notification",
		zap.String("alert_id", req.ID),
		zap.String("title", req.Title),
		zap.String("body", req.Body),
		zap.String("category", string(req.Category)))
	return nil
}
