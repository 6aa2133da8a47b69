package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/pkg/clock"
	"go.uber.org/zap"
)

// SnoozeStore persists per-alert snooze counters across restarts.
type SnoozeStore interface {
	SnoozeCount(ctx context.Context, alertKey string) (int, error)
	SetSnoozeCount(ctx context.Context, alertKey string, count int) error
}

// RespondFunc is invoked when the user chooses "respond": the host surfaces
// its primary interface with the alert's body as context.
type RespondFunc func(alert models.ProactiveAlert)

// Config controls gateway behavior.
type Config struct {
	// SnoozeDelay is how long a snoozed alert waits before redelivery.
	SnoozeDelay time.Duration
	// MaxSnoozes caps snoozes per alert; further snoozes dismiss instead.
	MaxSnoozes int
}

func (c Config) withDefaults() Config {
	if c.SnoozeDelay <= 0 {
		c.SnoozeDelay = 15 * time.Minute
	}
	if c.MaxSnoozes <= 0 {
		c.MaxSnoozes = 3
	}
	return c
}

// redeliverTimeout bounds each background redelivery send.
const redeliverTimeout = 10 * time.Second

// recordGrace is how long a resolved alert record stays queryable before
// Tick sweeps it.
const recordGrace = time.Hour

// record is the gateway's per-alert state.
type record struct {
	alert         models.ProactiveAlert
	state         models.DeliveryState
	snoozeCount   int
	snoozedUntil  *time.Time
	resolvedAt    *time.Time
	undeliverable bool
}

// Gateway delivers, snoozes, and resolves platform notifications. Alert
// state lives behind one mutex; the platform call happens outside it. The
// gateway is passive: redelivery of snoozed alerts and expiry are driven by
// Tick from the scheduler loop, which keeps snooze timing deterministic
// under a fixed clock.
type Gateway struct {
	cfg      Config
	platform Platform
	store    SnoozeStore
	clock    clock.Clock
	logger   *zap.Logger

	mu        sync.Mutex
	records   map[string]*record
	onRespond RespondFunc
	wg        sync.WaitGroup

	// Delivery/permission problems surface as a one-time status indicator,
	// not repeated alerts.
	authorized       bool
	failureLogged    bool
	lastDeliveryErr  string
	authRequestedYet bool
}

// NewGateway constructs the notification gateway.
func NewGateway(cfg Config, platform Platform, store SnoozeStore, logger *zap.Logger) *Gateway {
	return NewGatewayWithClock(cfg, platform, store, logger, clock.RealClock{})
}

// NewGatewayWithClock is the test seam for deterministic time.
func NewGatewayWithClock(cfg Config, platform Platform, store SnoozeStore, logger *zap.Logger, clk clock.Clock) *Gateway {
	return &Gateway{
		cfg:      cfg.withDefaults(),
		platform: platform,
		store:    store,
		clock:    clk,
		logger:   logger,
		records:  make(map[string]*record),
	}
}

// SetRespondHandler registers the host callback for "respond" actions.
func (g *Gateway) SetRespondHandler(fn RespondFunc) {
	g.mu.Lock()
	g.onRespond = fn
	g.mu.Unlock()
}

// RequestAuthorization asks the platform for notification permission once.
// Refusal degrades delivery but never errors out of startup.
func (g *Gateway) RequestAuthorization(ctx context.Context) {
	g.mu.Lock()
	if g.authRequestedYet {
		g.mu.Unlock()
		return
	}
	g.authRequestedYet = true
	g.mu.Unlock()

	err := g.platform.RequestAuthorization(ctx)

	g.mu.Lock()
	g.authorized = err == nil
	g.mu.Unlock()

	if err != nil {
		g.logger.Warn("notification authorization refused", zap.Error(err))
	}
}

// Deliver maps the alert's category to its action set and requests platform
// delivery. A delivery failure is logged once, the alert is marked
// un-delivered, and no automatic retry ever happens.
func (g *Gateway) Deliver(ctx context.Context, alert models.ProactiveAlert) error {
	now := g.clock.Now()

	g.mu.Lock()
	rec := &record{alert: alert, state: models.DeliveryStateQueued}
	if g.store != nil {
		// Counter survives restarts so a relaunch cannot reset the cap.
		if n, err := g.store.SnoozeCount(ctx, alert.ID); err == nil {
			rec.snoozeCount = n
		}
	}
	g.records[alert.ID] = rec
	g.mu.Unlock()

	return g.send(ctx, rec, alert.Title, now)
}

// send performs the platform call outside the lock and records the outcome.
func (g *Gateway) send(ctx context.Context, rec *record, title string, at time.Time) error {
	req := Request{
		ID:        rec.alert.ID,
		Title:     title,
		Body:      rec.alert.Body,
		Category:  rec.alert.Category,
		Actions:   ActionsFor(rec.alert.Category),
		DeliverAt: at,
	}

	err := g.platform.Send(ctx, req)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		rec.undeliverable = true
		g.lastDeliveryErr = err.Error()
		if !g.failureLogged {
			g.failureLogged = true
			g.logger.Error("notification delivery failed; further failures suppressed",
				zap.String("alert_id", rec.alert.ID),
				zap.Error(err))
		}
		return err
	}
	// The user may have resolved the alert while the send was in flight;
	// only a still-queued record becomes delivered.
	if rec.state == models.DeliveryStateQueued {
		rec.state = models.DeliveryStateDelivered
		rec.snoozedUntil = nil
	}
	return nil
}

// HandleAction applies a user action to an alert. Duplicate actions on an
// already-resolved alert are no-ops. This entry point is independent of any
// platform protocol; the host's event loop calls it from its delegate.
func (g *Gateway) HandleAction(ctx context.Context, alertID string, action models.AlertAction) {
	now := g.clock.Now()

	g.mu.Lock()
	rec, ok := g.records[alertID]
	if !ok || rec.state.Resolved() {
		g.mu.Unlock()
		return
	}

	switch action {
	case models.AlertActionRespond:
		rec.state = models.DeliveryStateResponded
		rec.resolvedAt = &now
		fn := g.onRespond
		alert := rec.alert
		g.mu.Unlock()
		if fn != nil {
			fn(alert)
		}
		return

	case models.AlertActionSnooze:
		if rec.snoozeCount >= g.cfg.MaxSnoozes {
			// Cap reached; a further snooze dismisses instead of re-queuing.
			rec.state = models.DeliveryStateDismissed
			rec.resolvedAt = &now
			g.mu.Unlock()
			return
		}
		rec.snoozeCount++
		rec.state = models.DeliveryStateSnoozed
		until := now.Add(g.cfg.SnoozeDelay)
		rec.snoozedUntil = &until
		count := rec.snoozeCount
		g.mu.Unlock()
		if g.store != nil {
			if err := g.store.SetSnoozeCount(ctx, alertID, count); err != nil {
				g.logger.Error("failed to persist snooze count",
					zap.String("alert_id", alertID), zap.Error(err))
			}
		}
		return

	case models.AlertActionDismiss:
		rec.state = models.DeliveryStateDismissed
		rec.resolvedAt = &now
		g.mu.Unlock()
		return

	default:
		g.mu.Unlock()
		g.logger.Warn("unknown alert action",
			zap.String("alert_id", alertID),
			zap.String("action", string(action)))
	}
}

// Tick redelivers snoozed alerts whose delay elapsed (same content with a
// "(snoozed)" marker), expires alerts past their deadline, and sweeps
// records that have been resolved for longer than the grace period. Each
// redelivery send runs in its own goroutine with a bounded context so an
// unresponsive platform never stalls the caller's loop.
func (g *Gateway) Tick(now time.Time) {
	g.mu.Lock()
	var redeliver []*record
	for id, rec := range g.records {
		if rec.resolvedAt != nil && !now.Before(rec.resolvedAt.Add(recordGrace)) {
			delete(g.records, id)
			continue
		}
		if rec.alert.ExpiresAt != nil && !rec.state.Resolved() && !rec.alert.ExpiresAt.After(now) {
			rec.state = models.DeliveryStateExpired
			rec.resolvedAt = &now
			continue
		}
		if rec.state == models.DeliveryStateSnoozed && rec.snoozedUntil != nil && !rec.snoozedUntil.After(now) {
			rec.state = models.DeliveryStateQueued
			redeliver = append(redeliver, rec)
		}
	}
	g.mu.Unlock()

	for _, rec := range redeliver {
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), redeliverTimeout)
			defer cancel()
			// Ignore the error: failures are already logged once and a
			// snooze redelivery is never retried either.
			_ = g.send(ctx, rec, rec.alert.Title+" (snoozed)", now)
		}()
	}
}

// Close waits for in-flight redelivery sends to finish. Call on shutdown.
func (g *Gateway) Close() {
	g.wg.Wait()
}

// Status reports the one-time delivery/permission indicator for the UI.
func (g *Gateway) Status() (authorized bool, lastDeliveryErr string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authorized, g.lastDeliveryErr
}

// Delivery returns a copy of an alert's delivery record.
func (g *Gateway) Delivery(alertID string) (models.Delivery, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[alertID]
	if !ok {
		return models.Delivery{}, false
	}
	return models.Delivery{
		Alert:        rec.alert,
		State:        rec.state,
		SnoozeCount:  rec.snoozeCount,
		SnoozedUntil: rec.snoozedUntil,
	}, true
}

// ActionsFor maps a category to the action set offered on its notifications.
func ActionsFor(category models.AlertCategory) []models.AlertAction {
	switch category {
	case models.AlertCategoryMeeting:
		return []models.AlertAction{models.AlertActionRespond, models.AlertActionSnooze}
	case models.AlertCategoryBriefing, models.AlertCategorySuggestion:
		return []models.AlertAction{models.AlertActionRespond, models.AlertActionDismiss}
	default: // reminder and check-in style alerts
		return []models.AlertAction{models.AlertActionRespond, models.AlertActionSnooze, models.AlertActionDismiss}
	}
}
