package meetings

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"go.uber.org/zap"
)

// CalendarSource supplies today's events. Absence of calendar permission (or
// any upstream failure) yields an empty list, never an error: the engine
// must keep running when the calendar is unreachable.
type CalendarSource interface {
	TodaysEvents(ctx context.Context) []models.CalendarEvent
}

// HTTPCalendar pulls today's events from a local calendar bridge endpoint as
// JSON. Every failure mode degrades to an empty day.
type HTTPCalendar struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPCalendar creates the calendar adapter.
func NewHTTPCalendar(url string, logger *zap.Logger) *HTTPCalendar {
	return &HTTPCalendar{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (c *HTTPCalendar) TodaysEvents(ctx context.Context) []models.CalendarEvent {
	if c.url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("calendar pull failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("calendar pull returned non-200", zap.Int("status", resp.StatusCode))
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}

	var events []models.CalendarEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		c.logger.Debug("calendar payload unparseable", zap.Error(err))
		return nil
	}
	return events
}

// EmptyCalendar is the no-permission source: always an empty day.
type EmptyCalendar struct{}

func (EmptyCalendar) TodaysEvents(context.Context) []models.CalendarEvent { return nil }
