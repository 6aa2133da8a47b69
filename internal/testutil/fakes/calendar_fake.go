package fakes

import (
	"context"
	"sync"

	"github.com/dhima/proactive-scheduler/internal/models"
)

// FakeCalendar serves a fixed set of events.
type FakeCalendar struct {
	mu     sync.Mutex
	Events []models.CalendarEvent
}

func (f *FakeCalendar) TodaysEvents(context.Context) []models.CalendarEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.CalendarEvent, len(f.Events))
	copy(out, f.Events)
	return out
}

// SetEvents replaces the served event set.
func (f *FakeCalendar) SetEvents(events []models.CalendarEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = events
}
