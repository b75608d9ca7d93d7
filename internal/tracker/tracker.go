package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/synthevents/internal/config"
	"github.com/alexisbeaulieu97/synthevents/internal/logger"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
	"github.com/alexisbeaulieu97/synthevents/internal/storage"
)

const activeExecutionsFile = "active-executions.json"

// Options tunes the tracker's persistence and repair behaviour.
type Options struct {
	// DebounceWindow collapses bursts of updates into one mirror write.
	DebounceWindow time.Duration
	// CleanupGrace keeps a terminal execution visible to late pollers
	// before it is dropped from the live map.
	CleanupGrace time.Duration
	// StuckThreshold is how long an event may sit in running before the
	// repair sweep force-fails it.
	StuckThreshold time.Duration
}

// OptionsFromConfig maps the server config section onto tracker Options.
func OptionsFromConfig(cfg config.TrackerConfig) Options {
	return Options{
		DebounceWindow: cfg.DebounceWindow,
		CleanupGrace:   cfg.CleanupGrace,
		StuckThreshold: cfg.StuckThreshold,
	}
}

// EventRef identifies one event inside an execution, carrying enough of
// the source event to recreate its progress entry if the seeding write
// has not landed yet.
type EventRef struct {
	ScenarioID   string
	ScenarioName string
	Event        model.Event
	Order        int
}

// Tracker is the single source of truth for live execution progress. It
// holds the in-memory map and mirrors non-terminal executions to disk on
// a debounced schedule so a restart can recover in-flight state.
type Tracker struct {
	store *storage.Store
	log   *logger.Logger
	opts  Options

	mu          sync.Mutex
	executions  map[string]*model.ExecutionProgress
	saveTimer   *time.Timer
	pendingSave bool
	cleanup     map[string]*time.Timer
	closed      bool

	now func() time.Time
}

// New constructs a Tracker and hydrates it from the durable mirror so an
// interrupted process resumes with its in-flight executions visible.
func New(store *storage.Store, log *logger.Logger, opts Options) *Tracker {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = time.Second
	}
	if opts.CleanupGrace <= 0 {
		opts.CleanupGrace = 5 * time.Second
	}
	if opts.StuckThreshold <= 0 {
		opts.StuckThreshold = 2 * time.Minute
	}

	t := &Tracker{
		store:      store,
		log:        log.WithComponent("tracker"),
		opts:       opts,
		executions: make(map[string]*model.ExecutionProgress),
		cleanup:    make(map[string]*time.Timer),
		now:        time.Now,
	}
	t.hydrate()
	return t
}

// hydrate loads non-terminal executions from the mirror. Absence of the
// mirror is a normal first start.
func (t *Tracker) hydrate() {
	var doc map[string]*model.ExecutionProgress
	found, err := t.store.Read(activeExecutionsFile, &doc)
	if err != nil {
		t.log.Error(err, "failed to load active executions, starting fresh")
		return
	}
	if !found {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, progress := range doc {
		if progress.CompletedAt.IsZero() {
			t.executions[id] = progress
		}
	}
	t.log.WithFields(map[string]any{"count": len(t.executions)}).Info("loaded active executions from mirror")
}

// CreateExecution seeds progress state for an execution covering the
// given scenarios. Every scenario and event starts pending, with event
// execution order assigned from the scenario's original event order.
func (t *Tracker) CreateExecution(executionID string, scenarios []model.Scenario) {
	progress := &model.ExecutionProgress{
		ExecutionID:    executionID,
		Scenarios:      make([]model.ScenarioProgress, 0, len(scenarios)),
		TotalScenarios: len(scenarios),
		StartedAt:      t.now().UTC(),
	}

	for _, sc := range scenarios {
		sp := model.ScenarioProgress{
			ScenarioID:   sc.ID,
			ScenarioName: sc.Name,
			Status:       model.StatusPending,
			Events:       make([]model.EventProgress, 0, len(sc.Events)),
		}
		for i, ev := range sc.Events {
			sp.Events = append(sp.Events, model.EventProgress{
				EventID:        ev.ID,
				Type:           ev.Type,
				Status:         model.StatusPending,
				Delay:          ev.Delay,
				ExecutionOrder: i + 1,
			})
		}
		progress.Scenarios = append(progress.Scenarios, sp)
	}

	t.mu.Lock()
	t.executions[executionID] = progress
	t.scheduleSaveLocked()
	t.mu.Unlock()

	t.log.WithExecution(executionID).WithFields(map[string]any{"scenarios": len(scenarios)}).Info("created execution")
}

// UpdateScenarioStatus records a scenario transition. Unknown executions
// or scenarios are ignored; progress tracking never raises.
func (t *Tracker) UpdateScenarioStatus(executionID, scenarioID string, status model.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	progress, ok := t.executions[executionID]
	if !ok {
		return
	}
	scenario := progress.FindScenario(scenarioID)
	if scenario == nil {
		return
	}
	if scenario.Status.Terminal() {
		return
	}

	scenario.Status = status
	now := t.now().UTC()

	switch {
	case status == model.StatusRunning:
		scenario.StartedAt = now
	case status.Terminal() && scenario.CompletedAt.IsZero():
		scenario.CompletedAt = now
		progress.CompletedScenarios++

		if progress.CompletedScenarios == progress.TotalScenarios {
			progress.CompletedAt = now
			t.scheduleCleanupLocked(executionID)
		}
	}

	t.scheduleSaveLocked()
}

// UpsertEventStatus records an event transition, creating the scenario or
// event scaffolding when the seeding write has not landed yet. It returns
// false only when the execution itself is unknown.
func (t *Tracker) UpsertEventStatus(executionID string, ref EventRef, status model.Status, errMsg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	progress, ok := t.executions[executionID]
	if !ok {
		t.log.WithExecution(executionID).Warn("event update for unknown execution")
		return false
	}

	scenario := progress.FindScenario(ref.ScenarioID)
	if scenario == nil {
		progress.Scenarios = append(progress.Scenarios, model.ScenarioProgress{
			ScenarioID:   ref.ScenarioID,
			ScenarioName: ref.ScenarioName,
			Status:       model.StatusPending,
		})
		scenario = &progress.Scenarios[len(progress.Scenarios)-1]
	}

	event := scenario.FindEvent(ref.Event.ID)
	if event == nil {
		scenario.Events = append(scenario.Events, model.EventProgress{
			EventID:        ref.Event.ID,
			Type:           ref.Event.Type,
			Status:         model.StatusPending,
			Delay:          ref.Event.Delay,
			ExecutionOrder: ref.Order,
		})
		event = &scenario.Events[len(scenario.Events)-1]
	}

	if !event.Status.CanTransition(status) {
		// Re-applying the current status (or touching a terminal event)
		// is a no-op, not a failure.
		return true
	}

	event.Status = status
	now := t.now().UTC()
	switch {
	case status == model.StatusRunning:
		event.StartedAt = now
	case status.Terminal():
		event.CompletedAt = now
		if errMsg != "" {
			event.Error = errMsg
		}
	}

	if status.Terminal() {
		// Terminal transitions flush immediately so a crash loses at most
		// one in-flight running transition per event.
		t.saveNowLocked()
	} else {
		t.scheduleSaveLocked()
	}
	return true
}

// GetProgress returns a copy of the live progress for an execution. On a
// memory miss it reloads the mirror once to recover from a restart.
func (t *Tracker) GetProgress(executionID string) *model.ExecutionProgress {
	t.mu.Lock()
	if progress, ok := t.executions[executionID]; ok {
		defer t.mu.Unlock()
		return progress.Clone()
	}
	t.mu.Unlock()

	t.reloadMissing()

	t.mu.Lock()
	defer t.mu.Unlock()
	if progress, ok := t.executions[executionID]; ok {
		return progress.Clone()
	}
	return nil
}

// reloadMissing merges mirror entries the in-memory map does not know
// about. Entries already in memory are authoritative and never replaced.
func (t *Tracker) reloadMissing() {
	var doc map[string]*model.ExecutionProgress
	found, err := t.store.Read(activeExecutionsFile, &doc)
	if err != nil {
		t.log.Error(err, "failed to reload active executions")
		return
	}
	if !found {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, progress := range doc {
		if _, ok := t.executions[id]; !ok && progress.CompletedAt.IsZero() {
			t.executions[id] = progress
		}
	}
}

// FixStuckExecution force-fails events that have been running longer than
// the stuck threshold, so a crashed dispatch cannot wedge the scenario in
// a non-terminal state forever. It reports whether any repair occurred.
func (t *Tracker) FixStuckExecution(executionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	progress, ok := t.executions[executionID]
	if !ok {
		return false
	}
	return t.repairLocked(progress)
}

func (t *Tracker) repairLocked(progress *model.ExecutionProgress) bool {
	now := t.now().UTC()
	repaired := false

	for si := range progress.Scenarios {
		events := progress.Scenarios[si].Events
		for ei := range events {
			event := &events[ei]
			if event.Status != model.StatusRunning || event.StartedAt.IsZero() {
				continue
			}
			elapsed := now.Sub(event.StartedAt)
			if elapsed <= t.opts.StuckThreshold {
				continue
			}

			event.Status = model.StatusFailed
			event.CompletedAt = now
			event.Error = fmt.Sprintf("event timed out after running for %.1f minutes", elapsed.Minutes())
			repaired = true

			t.log.WithExecution(progress.ExecutionID).WithFields(map[string]any{
				"event_id": event.EventID,
				"elapsed":  elapsed.String(),
			}).Warn("force-failed stuck event")
		}
	}

	if repaired {
		t.saveNowLocked()
	}
	return repaired
}

// SweepStuck runs the stuck-event repair across every live execution and
// returns how many executions were repaired. Invoked periodically by the
// server's scheduler.
func (t *Tracker) SweepStuck() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	repaired := 0
	for _, progress := range t.executions {
		if t.repairLocked(progress) {
			repaired++
		}
	}
	return repaired
}

// scheduleCleanupLocked drops a terminal execution from the live map
// after the grace window, leaving History as its durable home.
func (t *Tracker) scheduleCleanupLocked(executionID string) {
	if t.closed {
		return
	}
	if timer, ok := t.cleanup[executionID]; ok {
		timer.Stop()
	}
	t.cleanup[executionID] = time.AfterFunc(t.opts.CleanupGrace, func() {
		t.mu.Lock()
		delete(t.executions, executionID)
		delete(t.cleanup, executionID)
		t.saveNowLocked()
		t.mu.Unlock()
		t.log.WithExecution(executionID).Debug("cleaned up completed execution")
	})
}

// scheduleSaveLocked requests a debounced mirror write. A request arriving
// while a write is already scheduled is remembered and re-scheduled once
// the in-flight write finishes, so no update is ever dropped.
func (t *Tracker) scheduleSaveLocked() {
	if t.closed {
		return
	}
	if t.saveTimer != nil {
		t.pendingSave = true
		return
	}
	t.saveTimer = time.AfterFunc(t.opts.DebounceWindow, t.flushDebounced)
}

func (t *Tracker) flushDebounced() {
	t.mu.Lock()
	t.saveTimer = nil
	t.saveNowLocked()
	if t.pendingSave {
		t.pendingSave = false
		t.scheduleSaveLocked()
	}
	t.mu.Unlock()
}

// saveNowLocked writes the mirror synchronously, retrying once. Failures
// are logged and swallowed: live correctness in memory takes priority
// over durability.
func (t *Tracker) saveNowLocked() {
	doc := make(map[string]*model.ExecutionProgress, len(t.executions))
	for id, progress := range t.executions {
		if progress.CompletedAt.IsZero() {
			doc[id] = progress
		}
	}

	if err := t.store.Write(activeExecutionsFile, doc); err != nil {
		t.log.Error(err, "failed to save active executions, retrying once")
		if err := t.store.Write(activeExecutionsFile, doc); err != nil {
			t.log.Error(err, "failed to save active executions on retry")
		}
	}
}

// Close flushes any pending mirror write and stops all timers. The
// tracker must not be used after Close.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.saveTimer != nil {
		t.saveTimer.Stop()
		t.saveTimer = nil
	}
	for id, timer := range t.cleanup {
		timer.Stop()
		delete(t.cleanup, id)
	}
	t.pendingSave = false
	t.saveNowLocked()
}
