package models

import "time"

// AlertCategory classifies a proactive alert and determines its action set.
type AlertCategory string

const (
	AlertCategoryMeeting    AlertCategory = "meeting"
	AlertCategoryBriefing   AlertCategory = "briefing"
	AlertCategorySuggestion AlertCategory = "suggestion"
	AlertCategoryReminder   AlertCategory = "reminder"
)

// AlertAction is a user response to a delivered alert.
type AlertAction string

const (
	AlertActionRespond AlertAction = "respond"
	AlertActionSnooze  AlertAction = "snooze"
	AlertActionDismiss AlertAction = "dismiss"
)

// DeliveryState tracks an alert through the notification lifecycle.
type DeliveryState string

const (
	DeliveryStateQueued    DeliveryState = "queued"
	DeliveryStateDelivered DeliveryState = "delivered"
	DeliveryStateResponded DeliveryState = "responded"
	DeliveryStateSnoozed   DeliveryState = "snoozed"
	DeliveryStateDismissed DeliveryState = "dismissed"
	DeliveryStateExpired   DeliveryState = "expired"
)

// Resolved reports whether the state is terminal; actions on a resolved
// alert are no-ops.
func (s DeliveryState) Resolved() bool {
	return s == DeliveryStateResponded || s == DeliveryStateDismissed || s == DeliveryStateExpired
}

// ProactiveAlert is an ephemeral notification derived from a task result or
// meeting warning. It is not persisted; only snooze counters survive restarts.
type ProactiveAlert struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Category  AlertCategory `json:"category"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// Delivery is the per-alert delivery record.
type Delivery struct {
	Alert        ProactiveAlert `json:"alert"`
	State        DeliveryState  `json:"state"`
	SnoozeCount  int            `json:"snooze_count"`
	SnoozedUntil *time.Time     `json:"snoozed_until,omitempty"`
}

// CalendarEvent is an externally supplied calendar entry.
type CalendarEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MeetingWarning is a derived, time-bounded alert tied to a calendar event
// offset. Never persisted; only its fired key is.
type MeetingWarning struct {
	EventID       string    `json:"event_id"`
	EventTitle    string    `json:"event_title"`
	EventTime     time.Time `json:"event_time"`
	MinutesBefore int       `json:"minutes_before"`
}
