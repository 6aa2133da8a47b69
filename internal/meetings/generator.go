package meetings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"go.uber.org/zap"
)

// WarningStore persists fired (event, lead, local date) keys so a warning
// fires at most once per local calendar day even across restarts.
type WarningStore interface {
	ClaimWarning(ctx context.Context, eventID string, leadMinutes int, localDate string, at time.Time) (bool, error)
}

// Deliverer receives the meeting alerts the generator emits.
type Deliverer interface {
	Deliver(ctx context.Context, alert models.ProactiveAlert) error
}

// Generator derives lead-time meeting warnings from fresh calendar pulls.
// Warnings are recomputed from scratch on every refresh; only the fired
// keys are persisted.
type Generator struct {
	leads  []int
	source CalendarSource
	store  WarningStore
	sink   Deliverer
	loc    *time.Location
	logger *zap.Logger

	mu      sync.Mutex
	current []models.MeetingWarning
}

// NewGenerator constructs the meeting warning generator. Leads are minutes
// before event start.
func NewGenerator(leads []int, source CalendarSource, store WarningStore, sink Deliverer, loc *time.Location, logger *zap.Logger) *Generator {
	if len(leads) == 0 {
		leads = []int{15, 5}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Generator{
		leads:  leads,
		source: source,
		store:  store,
		sink:   sink,
		loc:    loc,
		logger: logger,
	}
}

// Refresh pulls today's events, recomputes the active warning set, and emits
// an alert for each warning whose (event, lead) key has not fired today.
// Returns the pulled events so the caller can re-arm event-relative triggers.
func (g *Generator) Refresh(ctx context.Context, now time.Time) []models.CalendarEvent {
	events := g.source.TodaysEvents(ctx)

	active := make([]models.MeetingWarning, 0)
	localDate := now.In(g.loc).Format("2006-01-02")

	for _, ev := range events {
		for _, lead := range g.leads {
			warnAt := ev.Start.Add(-time.Duration(lead) * time.Minute)
			// Window: the lead instant has passed but the event hasn't
			// started. A meeting 20 minutes out with a 15-minute lead is
			// silent until T-15.
			if now.Before(warnAt) || !now.Before(ev.Start) {
				continue
			}

			w := models.MeetingWarning{
				EventID:       ev.ID,
				EventTitle:    ev.Title,
				EventTime:     ev.Start,
				MinutesBefore: lead,
			}
			active = append(active, w)

			claimed, err := g.store.ClaimWarning(ctx, ev.ID, lead, localDate, now)
			if err != nil {
				g.logger.Error("failed to claim warning key",
					zap.String("event_id", ev.ID),
					zap.Int("lead_minutes", lead),
					zap.Error(err))
				continue
			}
			if !claimed {
				continue // already fired today
			}

			g.emit(ctx, w, ev, now)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].EventTime.Equal(active[j].EventTime) {
			return active[i].MinutesBefore > active[j].MinutesBefore
		}
		return active[i].EventTime.Before(active[j].EventTime)
	})

	g.mu.Lock()
	g.current = active
	g.mu.Unlock()

	return events
}

// emit delivers one meeting alert. The deterministic alert ID keeps snooze
// counters attached to the same warning across restarts. The body reports
// the minutes actually remaining; a late refresh inside the window must not
// claim the full configured lead.
func (g *Generator) emit(ctx context.Context, w models.MeetingWarning, ev models.CalendarEvent, now time.Time) {
	start := ev.Start
	remaining := int((ev.Start.Sub(now) + time.Minute - 1) / time.Minute)
	if remaining < 1 {
		remaining = 1
	}
	alert := models.ProactiveAlert{
		ID:        fmt.Sprintf("meeting-%s-%d", ev.ID, w.MinutesBefore),
		Title:     ev.Title,
		Body:      fmt.Sprintf("%s starts in %d minutes", ev.Title, remaining),
		Category:  models.AlertCategoryMeeting,
		ExpiresAt: &start,
	}

	if err := g.sink.Deliver(ctx, alert); err != nil {
		g.logger.Warn("meeting alert delivery failed",
			zap.String("event_id", ev.ID), zap.Error(err))
	}
}

// Warnings returns the warning set from the last refresh.
func (g *Generator) Warnings() []models.MeetingWarning {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.MeetingWarning, len(g.current))
	copy(out, g.current)
	return out
}
