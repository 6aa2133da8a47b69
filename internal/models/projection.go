package models

import "time"

// JobSummary is the presentation view of one trigger for today.
type JobSummary struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	IsCompleted   bool       `json:"is_completed"`
}

// SchedulerState is the read-only snapshot surfaced to presentation layers.
type SchedulerState struct {
	NextEvent       *time.Time       `json:"next_event,omitempty"`
	TodaysJobs      []JobSummary     `json:"todays_jobs"`
	MeetingWarnings []MeetingWarning `json:"meeting_warnings"`
}
