package config

import (
	"testing"
	"time"
)

func TestFromEnv_WhenAllVariablesSet_ThenReturnsConfigWithSetValues(t *testing.T) {
	// Arrange
	t.Setenv("DATABASE_PATH", "/tmp/test-scheduler.db")
	t.Setenv("API_PORT", "9000")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000,https://example.com")
	t.Setenv("SCHEDULER_FALLBACK_TICK", "30s")
	t.Setenv("RUNNER_TIMEOUT", "2m")
	t.Setenv("SCHEDULER_MAX_CONSECUTIVE_FAILURES", "5")
	t.Setenv("SCHEDULER_TIMEZONE", "America/New_York")
	t.Setenv("AGENT_ENDPOINT", "http://localhost:9999/run")
	t.Setenv("NOTIFY_SNOOZE_DELAY", "10m")
	t.Setenv("NOTIFY_MAX_SNOOZES", "2")
	t.Setenv("MEETING_LEAD_MINUTES", "30,10,5")
	t.Setenv("CALENDAR_URL", "http://localhost:7000/today")
	t.Setenv("CALENDAR_REFRESH", "1m")

	// Act
	config := FromEnv()

	// Assert
	if config.DatabasePath != "/tmp/test-scheduler.db" {
		t.Errorf("expected DatabasePath to be '/tmp/test-scheduler.db', got '%s'", config.DatabasePath)
	}
	if config.APIPort != "9000" {
		t.Errorf("expected APIPort to be '9000', got '%s'", config.APIPort)
	}
	if config.Environment != "development" {
		t.Errorf("expected Environment to be 'development', got '%s'", config.Environment)
	}
	if config.LogLevel != "debug" {
		t.Errorf("expected LogLevel to be 'debug', got '%s'", config.LogLevel)
	}
	if len(config.CORSOrigins) != 2 || config.CORSOrigins[1] != "https://example.com" {
		t.Errorf("expected two CORS origins, got %v", config.CORSOrigins)
	}
	if config.FallbackTick != 30*time.Second {
		t.Errorf("expected FallbackTick to be 30s, got %v", config.FallbackTick)
	}
	if config.RunnerTimeout != 2*time.Minute {
		t.Errorf("expected RunnerTimeout to be 2m, got %v", config.RunnerTimeout)
	}
	if config.MaxConsecutiveFailures != 5 {
		t.Errorf("expected MaxConsecutiveFailures to be 5, got %d", config.MaxConsecutiveFailures)
	}
	if config.Timezone != "America/New_York" {
		t.Errorf("expected Timezone to be 'America/New_York', got '%s'", config.Timezone)
	}
	if config.AgentEndpoint != "http://localhost:9999/run" {
		t.Errorf("expected AgentEndpoint to be 'http://localhost:9999/run', got '%s'", config.AgentEndpoint)
	}
	if config.SnoozeDelay != 10*time.Minute {
		t.Errorf("expected SnoozeDelay to be 10m, got %v", config.SnoozeDelay)
	}
	if config.MaxSnoozes != 2 {
		t.Errorf("expected MaxSnoozes to be 2, got %d", config.MaxSnoozes)
	}
	if len(config.MeetingLeads) != 3 || config.MeetingLeads[0] != 30 {
		t.Errorf("expected MeetingLeads to be [30 10 5], got %v", config.MeetingLeads)
	}
	if config.CalendarURL != "http://localhost:7000/today" {
		t.Errorf("expected CalendarURL to be 'http://localhost:7000/today', got '%s'", config.CalendarURL)
	}
	if config.CalendarRefresh != time.Minute {
		t.Errorf("expected CalendarRefresh to be 1m, got %v", config.CalendarRefresh)
	}
}

func TestFromEnv_WhenNoVariablesSet_ThenReturnsDefaults(t *testing.T) {
	// Arrange
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("API_PORT", "")
	t.Setenv("SCHEDULER_FALLBACK_TICK", "")
	t.Setenv("NOTIFY_MAX_SNOOZES", "")
	t.Setenv("MEETING_LEAD_MINUTES", "")

	// Act
	config := FromEnv()

	// Assert
	if config.DatabasePath != "scheduler.db" {
		t.Errorf("expected default DatabasePath 'scheduler.db', got '%s'", config.DatabasePath)
	}
	if config.APIPort != "8080" {
		t.Errorf("expected default APIPort '8080', got '%s'", config.APIPort)
	}
	if config.FallbackTick != 60*time.Second {
		t.Errorf("expected default FallbackTick 60s, got %v", config.FallbackTick)
	}
	if config.MaxConsecutiveFailures != 0 {
		t.Errorf("expected failure auto-pause disabled by default, got %d", config.MaxConsecutiveFailures)
	}
	if config.MaxSnoozes != 3 {
		t.Errorf("expected default MaxSnoozes 3, got %d", config.MaxSnoozes)
	}
	if len(config.MeetingLeads) != 2 || config.MeetingLeads[0] != 15 || config.MeetingLeads[1] != 5 {
		t.Errorf("expected default MeetingLeads [15 5], got %v", config.MeetingLeads)
	}
	if config.CalendarURL != "" {
		t.Errorf("expected CalendarURL empty by default, got '%s'", config.CalendarURL)
	}
}

func TestFromEnv_WhenInvalidNumericValues_ThenFallsBack(t *testing.T) {
	// Arrange
	t.Setenv("SCHEDULER_MAX_CONSECUTIVE_FAILURES", "lots")
	t.Setenv("RUNNER_TIMEOUT", "soon")

	// Act
	config := FromEnv()

	// Assert
	if config.MaxConsecutiveFailures != 0 {
		t.Errorf("expected fallback MaxConsecutiveFailures 0, got %d", config.MaxConsecutiveFailures)
	}
	if config.RunnerTimeout != 5*time.Minute {
		t.Errorf("expected fallback RunnerTimeout 5m, got %v", config.RunnerTimeout)
	}
}

func TestLocation_WhenTimezoneSet_ThenLoadsIt(t *testing.T) {
	// Arrange
	config := App{Timezone: "America/New_York"}

	// Act
	loc, err := config.Location()

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("expected America/New_York, got %s", loc)
	}
}

func TestLocation_WhenTimezoneInvalid_ThenReturnsError(t *testing.T) {
	// Arrange
	config := App{Timezone: "Mars/Olympus"}

	// Act
	_, err := config.Location()

	// Assert
	if err == nil {
		t.Error("expected an error for an unknown timezone")
	}
}
