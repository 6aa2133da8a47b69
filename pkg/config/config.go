package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// App holds runtime configuration derived from env vars.
type App struct {
	DatabasePath string
	APIPort      string
	Environment  string
	LogLevel     string
	CORSOrigins  []string

	// Scheduler behavior.
	FallbackTick           time.Duration
	RunnerTimeout          time.Duration
	MaxConsecutiveFailures int
	Timezone               string

	// Agent runner boundary.
	AgentEndpoint string

	// Notification behavior.
	SnoozeDelay  time.Duration
	MaxSnoozes   int
	MeetingLeads []int // minutes before event start

	// Calendar source; empty disables meeting warnings.
	CalendarURL     string
	CalendarRefresh time.Duration
}

// FromEnv loads the application configuration from environment variables,
// falling back to defaults suitable for a local single-user install.
func FromEnv() App {
	return App{
		DatabasePath: getEnv("DATABASE_PATH", "scheduler.db"),
		APIPort:      getEnv("API_PORT", "8080"),
		Environment:  getEnv("ENVIRONMENT", "production"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		FallbackTick:           getDuration("SCHEDULER_FALLBACK_TICK", 60*time.Second),
		RunnerTimeout:          getDuration("RUNNER_TIMEOUT", 5*time.Minute),
		MaxConsecutiveFailures: getInt("SCHEDULER_MAX_CONSECUTIVE_FAILURES", 0),
		Timezone:               getEnv("SCHEDULER_TIMEZONE", ""),

		AgentEndpoint: getEnv("AGENT_ENDPOINT", "http://localhost:8787/run"),

		SnoozeDelay:  getDuration("NOTIFY_SNOOZE_DELAY", 15*time.Minute),
		MaxSnoozes:   getInt("NOTIFY_MAX_SNOOZES", 3),
		MeetingLeads: splitInts(getEnv("MEETING_LEAD_MINUTES", "15,5")),

		CalendarURL:     getEnv("CALENDAR_URL", ""),
		CalendarRefresh: getDuration("CALENDAR_REFRESH", 5*time.Minute),
	}
}

// Location resolves the configured timezone; empty means the process-local
// zone.
func (a App) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitInts(raw string) []int {
	out := make([]int, 0, 4)
	for _, p := range splitList(raw) {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	return out
}
