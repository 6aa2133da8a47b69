package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/dhima/proactive-scheduler/internal/recurrence"
	"github.com/dhima/proactive-scheduler/internal/runner"
	"github.com/dhima/proactive-scheduler/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownTrigger indicates the engine has no entry for the requested ID.
var ErrUnknownTrigger = errors.New("scheduler: unknown trigger")

// ErrNotRunnable indicates the trigger cannot fire in its current status.
var ErrNotRunnable = errors.New("scheduler: trigger is not runnable")

const alertBodyLimit = 240

// Config controls engine behavior.
type Config struct {
	// FallbackTick bounds the sleep between evaluations so sleep/wake and
	// clock changes are absorbed even when no deadline is near.
	FallbackTick time.Duration
	// RunnerTimeout bounds each TaskRunner call.
	RunnerTimeout time.Duration
	// MaxConsecutiveFailures pauses a trigger after that many consecutive
	// failed runs. Zero disables the policy.
	MaxConsecutiveFailures int
	// Location is the default zone for wall-clock specs and daily keys.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if c.FallbackTick <= 0 {
		c.FallbackTick = 60 * time.Second
	}
	if c.RunnerTimeout <= 0 {
		c.RunnerTimeout = 5 * time.Minute
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// entry is the engine's per-trigger state: the persisted trigger plus the
// parsed spec and the volatile flags the single mutex guards.
type entry struct {
	trigger models.Trigger
	spec    *recurrence.Spec

	inFlight            bool
	consecutiveFailures int
	lastCompletedDate   string // local date of the last successful run
}

// Engine is the scheduler core. It owns the trigger table, arms each trigger
// via the recurrence evaluator, sleeps until the nearest deadline, fires due
// triggers through the TaskRunner, and re-arms or expires them. All mutable
// state sits behind one mutex; runner and gateway I/O happen outside it.
type Engine struct {
	cfg     Config
	store   TriggerStore
	runner  runner.TaskRunner
	results ResultRecorder
	alerts  AlertSink
	clock   clock.Clock
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewEngine constructs the scheduler core.
func NewEngine(cfg Config, store TriggerStore, run runner.TaskRunner, results ResultRecorder, alerts AlertSink, logger *zap.Logger) *Engine {
	return NewEngineWithClock(cfg, store, run, results, alerts, logger, clock.RealClock{})
}

// NewEngineWithClock is the test seam for deterministic time.
func NewEngineWithClock(cfg Config, store TriggerStore, run runner.TaskRunner, results ResultRecorder, alerts AlertSink, logger *zap.Logger, clk clock.Clock) *Engine {
	return &Engine{
		cfg:     cfg.withDefaults(),
		store:   store,
		runner:  run,
		results: results,
		alerts:  alerts,
		clock:   clk,
		logger:  logger,
		entries: make(map[string]*entry),
		wake:    make(chan struct{}, 1),
	}
}

// Load reconstructs the trigger table from persisted records. An interrupted
// firing leaves only its trigger row behind and is never assumed complete;
// one-shot triggers whose instant passed unfired become expired rather than
// firing a relaunch backlog.
func (e *Engine) Load(ctx context.Context) error {
	triggers, err := e.store.LoadTriggers(ctx)
	if err != nil {
		return fmt.Errorf("load triggers: %w", err)
	}

	now := e.clock.Now()
	for i := range triggers {
		t := triggers[i]
		if err := e.admit(ctx, &t, now); err != nil {
			// A stored trigger with a bad spec must not take down the rest.
			e.logger.Error("skipping unloadable trigger",
				zap.String("trigger_id", t.ID),
				zap.Error(err))
		}
	}

	e.logger.Info("trigger table loaded", zap.Int("count", len(triggers)))
	return nil
}

// Register validates the trigger's spec, computes its next run, transitions
// it to armed, and persists it. A malformed spec is rejected with a
// ScheduleParseError and the trigger is never armed. Also used to re-arm an
// existing trigger after a user edit.
func (e *Engine) Register(ctx context.Context, t *models.Trigger) error {
	if err := e.admit(ctx, t, e.clock.Now()); err != nil {
		return err
	}
	e.kick()
	return nil
}

// admit parses, arms, stores, and tables the trigger.
func (e *Engine) admit(ctx context.Context, t *models.Trigger, now time.Time) error {
	// Manual triggers carry no recurrence spec and never arm.
	var spec *recurrence.Spec
	if len(t.Spec) > 0 || t.Type != models.TriggerTypeManual {
		var err error
		spec, err = recurrence.Parse(t.Spec)
		if err != nil {
			return err
		}
	}

	en := &entry{trigger: *t, spec: spec}

	if en.trigger.Status == models.TriggerStatusActive {
		if err := e.arm(en, now); err != nil {
			return err
		}
	} else {
		en.trigger.NextRun = nil
	}

	date := e.localDate(en, now)
	if done, err := e.store.HasDailyCompletion(ctx, en.trigger.ID, date); err == nil && done {
		en.lastCompletedDate = date
	}

	if err := e.store.SaveTrigger(ctx, &en.trigger); err != nil {
		// In-memory state stays authoritative until the next save succeeds.
		e.logger.Error("failed to persist trigger",
			zap.String("trigger_id", en.trigger.ID),
			zap.Error(err))
	}

	e.mu.Lock()
	if prev, ok := e.entries[en.trigger.ID]; ok && prev.inFlight {
		// Keep the in-flight flag across an edit; the running firing will
		// clear it on the new entry when it completes.
		en.inFlight = true
		en.consecutiveFailures = prev.consecutiveFailures
	}
	e.entries[en.trigger.ID] = en
	e.mu.Unlock()
	return nil
}

// arm computes nextRun for an active trigger. One-shot triggers whose
// instant passed with no completion recorded expire instead of firing.
func (e *Engine) arm(en *entry, now time.Time) error {
	if en.spec == nil {
		en.trigger.NextRun = nil
		return nil
	}

	next, err := recurrence.NextOccurrence(en.spec, now, e.cfg.Location)
	if err != nil {
		return err
	}

	if next == nil {
		en.trigger.NextRun = nil
		if en.spec.Kind == recurrence.KindOneShot {
			if en.trigger.RunCount == 0 {
				en.trigger.Status = models.TriggerStatusExpired
			} else {
				en.trigger.Status = models.TriggerStatusCompleted
			}
		}
		// Event-relative triggers stay dormant until a calendar refresh
		// resolves their offset; manual-style specs never arm.
		return nil
	}

	en.trigger.NextRun = next
	return nil
}

// Remove drops a trigger from the table. Persistence deletion is the
// caller's concern.
func (e *Engine) Remove(id string) {
	e.mu.Lock()
	delete(e.entries, id)
	e.mu.Unlock()
}

// Run drives the tick loop: sleep until the nearest deadline, bounded by the
// fallback tick, then evaluate. Returns when the context is cancelled, after
// waiting for in-flight firings so shutdown never strands a goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("scheduler loop started",
		zap.Duration("fallback_tick", e.cfg.FallbackTick))

	for {
		now := e.clock.Now()
		e.Tick(ctx, now)

		d := e.cfg.FallbackTick
		if next := e.nextDeadline(); next != nil {
			if until := next.Sub(now); until < d {
				d = until
			}
		}
		if d <= 0 {
			d = 50 * time.Millisecond
		}

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.wg.Wait()
			return ctx.Err()
		case <-timer.C:
		case <-e.wake:
			timer.Stop()
		}
	}
}

// Tick gathers all armed triggers due at now, ordered ascending by nextRun,
// and dispatches each as an independent unit of work. A trigger already
// firing is skipped, so two ticks with the same now never produce two
// results for the same occurrence.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	if e.alerts != nil {
		e.alerts.Tick(now)
	}

	e.mu.Lock()
	due := make([]*entry, 0)
	for _, en := range e.entries {
		if en.trigger.Status != models.TriggerStatusActive || en.inFlight {
			continue
		}
		if en.trigger.NextRun == nil || en.trigger.NextRun.After(now) {
			continue
		}
		due = append(due, en)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].trigger.NextRun.Before(*due[j].trigger.NextRun)
	})

	type dispatch struct {
		id         string
		occurrence time.Time
	}
	var fired []dispatch
	var reSaved []*models.Trigger

	for _, en := range due {
		if en.trigger.DailyScoped() && en.lastCompletedDate == e.localDate(en, now) {
			// Already fired this local day; advance past the stale deadline
			// without dispatching.
			if err := e.arm(en, now); err == nil {
				t := en.trigger
				reSaved = append(reSaved, &t)
			}
			continue
		}
		occurrence := *en.trigger.NextRun
		en.inFlight = true
		fired = append(fired, dispatch{id: en.trigger.ID, occurrence: occurrence})
	}
	e.mu.Unlock()

	for _, t := range reSaved {
		if err := e.store.SaveTrigger(ctx, t); err != nil {
			e.logger.Error("failed to persist re-armed trigger",
				zap.String("trigger_id", t.ID), zap.Error(err))
		}
	}

	for _, d := range fired {
		e.wg.Add(1)
		go e.fire(ctx, d.id, d.occurrence, models.RunSourceScheduler)
	}
}

// RunJobNow is the manual override. With force=false a trigger that already
// completed today is a no-op; force=true bypasses the daily idempotence key
// but never the in-flight flag. Returns whether a firing was dispatched.
func (e *Engine) RunJobNow(ctx context.Context, id string, force bool) (bool, error) {
	now := e.clock.Now()

	e.mu.Lock()
	en, ok := e.entries[id]
	if !ok {
		e.mu.Unlock()
		return false, ErrUnknownTrigger
	}
	if en.trigger.Status != models.TriggerStatusActive {
		e.mu.Unlock()
		return false, fmt.Errorf("%w: status is %s", ErrNotRunnable, en.trigger.Status)
	}
	if en.inFlight {
		e.mu.Unlock()
		return false, nil
	}
	if !force && en.lastCompletedDate == e.localDate(en, now) {
		e.mu.Unlock()
		return false, nil
	}
	en.inFlight = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.fire(ctx, id, now, models.RunSourceManual)
	return true, nil
}

// ResolveEventTriggers re-arms event-relative triggers against a fresh set
// of today's calendar events. Called by the meeting refresher; event times
// are supplied, never computed here.
func (e *Engine) ResolveEventTriggers(ctx context.Context, now time.Time, events []models.CalendarEvent) {
	e.mu.Lock()
	var changed []*models.Trigger
	for _, en := range e.entries {
		if en.spec == nil || en.spec.Kind != recurrence.KindRelativeToEvent || en.trigger.Status != models.TriggerStatusActive || en.inFlight {
			continue
		}

		var next *time.Time
		for _, ev := range events {
			if !ev.Start.After(now) {
				continue // event already started
			}
			at, err := recurrence.EventOffset(en.spec, ev.Start)
			if err != nil {
				continue
			}
			if next == nil || at.Before(*next) {
				t := at
				next = &t
			}
		}

		prev := en.trigger.NextRun
		en.trigger.NextRun = next
		if !equalTimePtr(prev, next) {
			t := en.trigger
			changed = append(changed, &t)
		}
	}
	e.mu.Unlock()

	for _, t := range changed {
		if err := e.store.SaveTrigger(ctx, t); err != nil {
			e.logger.Error("failed to persist event trigger",
				zap.String("trigger_id", t.ID), zap.Error(err))
		}
	}
	if len(changed) > 0 {
		e.kick()
	}
}

// fire executes one occurrence outside the engine lock, records the result,
// and re-arms, completes, or expires the trigger. A runner failure is
// isolated: the trigger stays scheduled unless the consecutive-failure
// threshold is exceeded.
func (e *Engine) fire(ctx context.Context, id string, occurrence time.Time, source models.RunSource) {
	defer e.wg.Done()

	e.mu.Lock()
	en, ok := e.entries[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	trig := en.trigger
	e.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.RunnerTimeout)
	result, runErr := e.runner.Run(runCtx, &trig)
	cancel()

	if runErr == nil && result == nil {
		// A runner returning neither result nor error is a contract
		// violation; record it as an invalid response.
		runErr = runner.NewError(runner.ErrInvalidResponse, errors.New("runner returned no result"))
	}

	firedAt := e.clock.Now()
	if runErr != nil {
		msg := runErr.Error()
		result = &models.AgentTaskResult{
			ID:           uuid.New().String(),
			TriggerID:    trig.ID,
			Timestamp:    firedAt.UTC(),
			Status:       models.ResultStatusFailed,
			ErrorMessage: &msg,
			CreatedAt:    firedAt.UTC(),
		}
		e.logger.Warn("trigger run failed",
			zap.String("trigger_id", trig.ID),
			zap.String("trigger_name", trig.Name),
			zap.Error(runErr))
	}
	result.Source = source

	if e.results != nil {
		if err := e.results.Record(ctx, result); err != nil {
			e.logger.Error("failed to record task result",
				zap.String("trigger_id", trig.ID), zap.Error(err))
		}
	}

	var alert *models.ProactiveAlert

	e.mu.Lock()
	en, ok = e.entries[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	en.inFlight = false
	en.trigger.LastRunAt = &firedAt
	en.trigger.RunCount++

	localDate := e.localDate(en, firedAt)
	if runErr == nil {
		en.consecutiveFailures = 0
		en.lastCompletedDate = localDate
	} else {
		en.consecutiveFailures++
		if e.cfg.MaxConsecutiveFailures > 0 && en.consecutiveFailures >= e.cfg.MaxConsecutiveFailures {
			en.trigger.Status = models.TriggerStatusPaused
			e.logger.Warn("trigger paused after consecutive failures",
				zap.String("trigger_id", trig.ID),
				zap.Int("failures", en.consecutiveFailures))
		}
	}

	switch {
	case en.spec == nil:
		en.trigger.NextRun = nil
	case en.spec.Kind == recurrence.KindOneShot:
		// The occurrence is consumed either way; a failure stays visible in
		// the results view.
		en.trigger.Status = models.TriggerStatusCompleted
		en.trigger.NextRun = nil
	case en.trigger.Status == models.TriggerStatusActive:
		if err := e.arm(en, maxTime(firedAt, occurrence)); err != nil {
			e.logger.Error("failed to re-arm trigger",
				zap.String("trigger_id", trig.ID), zap.Error(err))
			en.trigger.NextRun = nil
		}
	default:
		en.trigger.NextRun = nil
	}

	saved := en.trigger
	if runErr == nil {
		alert = e.buildAlert(&saved, result)
	}
	e.mu.Unlock()

	if err := e.store.SaveTrigger(ctx, &saved); err != nil {
		e.logger.Error("failed to persist trigger after firing",
			zap.String("trigger_id", trig.ID), zap.Error(err))
	}
	if runErr == nil {
		if err := e.store.MarkDailyCompletion(ctx, trig.ID, localDate, firedAt); err != nil {
			e.logger.Error("failed to mark daily completion",
				zap.String("trigger_id", trig.ID), zap.Error(err))
		}
	}

	if alert != nil && e.alerts != nil {
		if err := e.alerts.Deliver(ctx, *alert); err != nil {
			e.logger.Warn("alert delivery failed",
				zap.String("trigger_id", trig.ID), zap.Error(err))
		}
	}

	e.kick()
}

// buildAlert turns a successful result into a proactive alert.
func (e *Engine) buildAlert(t *models.Trigger, result *models.AgentTaskResult) *models.ProactiveAlert {
	category := models.AlertCategoryBriefing
	if t.Type == models.TriggerTypeCheckin {
		category = models.AlertCategoryReminder
	}

	body := result.Output
	if len(body) > alertBodyLimit {
		body = body[:alertBodyLimit] + "…"
	}
	if body == "" {
		body = fmt.Sprintf("%s finished", t.Name)
	}

	return &models.ProactiveAlert{
		ID:       uuid.New().String(),
		Title:    t.Name,
		Body:     body,
		Category: category,
	}
}

// Snapshot produces the projection state for presentation layers.
func (e *Engine) Snapshot(now time.Time) models.SchedulerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := models.SchedulerState{TodaysJobs: []models.JobSummary{}}
	for _, en := range e.entries {
		if en.trigger.NextRun != nil {
			if state.NextEvent == nil || en.trigger.NextRun.Before(*state.NextEvent) {
				t := *en.trigger.NextRun
				state.NextEvent = &t
			}
		}

		completedToday := en.lastCompletedDate == e.localDate(en, now)
		scheduled := en.trigger.NextRun
		if scheduled == nil {
			scheduled = en.trigger.LastRunAt
		}
		if !completedToday && !timeOnDay(scheduled, now, e.cfg.Location) {
			continue
		}
		state.TodaysJobs = append(state.TodaysJobs, models.JobSummary{
			ID:            en.trigger.ID,
			Name:          en.trigger.Name,
			ScheduledTime: scheduled,
			IsCompleted:   completedToday,
		})
	}

	sort.Slice(state.TodaysJobs, func(i, j int) bool {
		return state.TodaysJobs[i].ID < state.TodaysJobs[j].ID
	})
	return state
}

// nextDeadline returns the earliest nextRun among armed triggers.
func (e *Engine) nextDeadline() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	var min *time.Time
	for _, en := range e.entries {
		if en.trigger.Status != models.TriggerStatusActive || en.inFlight || en.trigger.NextRun == nil {
			continue
		}
		if min == nil || en.trigger.NextRun.Before(*min) {
			t := *en.trigger.NextRun
			min = &t
		}
	}
	return min
}

// localDate formats the daily idempotence key date in the spec's location.
func (e *Engine) localDate(en *entry, now time.Time) string {
	loc := e.cfg.Location
	if en.spec != nil {
		if specLoc, err := en.spec.Location(e.cfg.Location); err == nil {
			loc = specLoc
		}
	}
	return now.In(loc).Format("2006-01-02")
}

func (e *Engine) kick() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func timeOnDay(t *time.Time, now time.Time, loc *time.Location) bool {
	if t == nil {
		return false
	}
	return t.In(loc).Format("2006-01-02") == now.In(loc).Format("2006-01-02")
}
