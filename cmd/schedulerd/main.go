package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhima/proactive-scheduler/internal/api"
	"github.com/dhima/proactive-scheduler/internal/logging"
	"github.com/dhima/proactive-scheduler/internal/meetings"
	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/notify"
	"github.com/dhima/proactive-scheduler/internal/projection"
	"github.com/dhima/proactive-scheduler/internal/results"
	"github.com/dhima/proactive-scheduler/internal/runner"
	"github.com/dhima/proactive-scheduler/internal/scheduler"
	"github.com/dhima/proactive-scheduler/internal/storage"
	"github.com/dhima/proactive-scheduler/internal/triggers"
	"github.com/dhima/proactive-scheduler/pkg/clock"
	"github.com/dhima/proactive-scheduler/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = logger.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid SCHEDULER_TIMEZONE", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	resultService := results.NewService(db, logger.Zap())

	gateway := notify.NewGateway(notify.Config{
		SnoozeDelay: cfg.SnoozeDelay,
		MaxSnoozes:  cfg.MaxSnoozes,
	}, notify.NewLogPlatform(logger.Zap()), db, logger.Zap())
	gateway.SetRespondHandler(func(alert models.ProactiveAlert) {
		logger.Info("alert response requested",
			zap.String("alert_id", alert.ID),
			zap.String("category", string(alert.Category)))
	})
	gateway.RequestAuthorization(ctx)

	taskRunner := runner.NewHTTPRunner(cfg.AgentEndpoint, logger.Zap())

	engine := scheduler.NewEngine(scheduler.Config{
		FallbackTick:           cfg.FallbackTick,
		RunnerTimeout:          cfg.RunnerTimeout,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		Location:               loc,
	}, db, taskRunner, resultService, gateway, logger.Zap())

	if err := engine.Load(ctx); err != nil {
		logger.Fatal("failed to load triggers", zap.Error(err))
	}

	var calendar meetings.CalendarSource = meetings.EmptyCalendar{}
	if cfg.CalendarURL != "" {
		calendar = meetings.NewHTTPCalendar(cfg.CalendarURL, logger.Zap())
	}
	generator := meetings.NewGenerator(cfg.MeetingLeads, calendar, db, gateway, loc, logger.Zap())

	stateService := projection.NewService(engine, generator, clock.RealClock{})
	triggerService := triggers.NewService(db, engine)

	server := api.NewServer(cfg, logger, api.Deps{
		Triggers: triggerService,
		Results:  resultService,
		State:    stateService,
		Runner:   engine,
		Gateway:  gateway,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(ctx)
	})

	g.Go(func() error {
		return server.Serve(ctx)
	})

	g.Go(func() error {
		return calendarLoop(ctx, cfg.CalendarRefresh, generator, engine, clock.RealClock{})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("scheduler exited with error", zap.Error(err))
	}
	gateway.Close()
	logger.Info("scheduler stopped")
}

// calendarLoop refreshes meeting warnings and event-relative trigger times on
// a fixed interval. The first refresh runs immediately so warnings are live
// before the first tick.
func calendarLoop(ctx context.Context, interval time.Duration, gen *meetings.Generator, engine *scheduler.Engine, clk clock.Clock) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	refresh := func() {
		now := clk.Now()
		events := gen.Refresh(ctx, now)
		engine.ResolveEventTriggers(ctx, now, events)
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		}
	}
}
