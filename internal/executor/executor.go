package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/synthevents/internal/channel"
	"github.com/alexisbeaulieu97/synthevents/internal/config"
	"github.com/alexisbeaulieu97/synthevents/internal/logger"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
	"github.com/alexisbeaulieu97/synthevents/internal/tracker"
	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

// Tracker is the progress-tracking surface the executor drives.
type Tracker interface {
	CreateExecution(executionID string, scenarios []model.Scenario)
	UpdateScenarioStatus(executionID, scenarioID string, status model.Status)
	UpsertEventStatus(executionID string, ref tracker.EventRef, status model.Status, errMsg string) bool
}

// HistoryWriter records immutable run history.
type HistoryWriter interface {
	SaveRun(run model.ExecutionRun) error
}

// ScenarioUpdater writes the derived run status back to scenario storage.
type ScenarioUpdater interface {
	UpdateStatus(id string, status model.ScenarioStatus) error
}

// ClientResolver maps event types to their delivery clients.
type ClientResolver interface {
	Resolve(eventType model.EventType) (channel.Client, error)
}

// Options tunes dispatch timeouts and provides test seams for pacing.
type Options struct {
	EventTimeout time.Duration
	EmailTimeout time.Duration
	Sleep        func(d time.Duration)
	Now          func() time.Time
}

// OptionsFromConfig maps the executor config section onto Options.
func OptionsFromConfig(cfg config.ExecutorConfig) Options {
	return Options{
		EventTimeout: cfg.EventTimeout,
		EmailTimeout: cfg.EmailTimeout,
	}
}

// Executor runs scenarios: it paces events by their declared delays,
// dispatches each one to its channel under a timeout, and records live
// progress plus a final history record. An event failure never aborts
// the scenario; delivery is best effort across the whole sequence.
type Executor struct {
	tracker   Tracker
	history   HistoryWriter
	scenarios ScenarioUpdater
	clients   ClientResolver
	log       *logger.Logger
	opts      Options
}

// New constructs an Executor.
func New(tr Tracker, history HistoryWriter, scenarios ScenarioUpdater, clients ClientResolver, log *logger.Logger, opts Options) *Executor {
	if opts.EventTimeout <= 0 {
		opts.EventTimeout = 30 * time.Second
	}
	if opts.EmailTimeout <= 0 {
		opts.EmailTimeout = 45 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Executor{
		tracker:   tr,
		history:   history,
		scenarios: scenarios,
		clients:   clients,
		log:       log.WithComponent("executor"),
		opts:      opts,
	}
}

// Execute seeds progress for the given scenarios and runs them. A single
// scenario runs inline under the bare execution ID; multiple scenarios
// run concurrently, each recorded under "<executionID>-<scenarioID>".
// All scenarios run to completion regardless of sibling failures; the
// returned error aggregates infrastructure failures only.
func (e *Executor) Execute(ctx context.Context, executionID string, scenarios []model.Scenario) error {
	if len(scenarios) == 0 {
		return synerrors.NewValidationError("scenarios", "at least one scenario is required", nil)
	}
	e.tracker.CreateExecution(executionID, scenarios)
	return e.Run(ctx, executionID, scenarios)
}

// Run executes scenarios whose progress state has already been seeded
// with the tracker. Callers that need the execution visible to pollers
// before the run starts seed first and call Run later.
func (e *Executor) Run(ctx context.Context, executionID string, scenarios []model.Scenario) error {
	if len(scenarios) == 1 {
		return e.runScenario(ctx, executionID, scenarios[0], false)
	}

	errs := make([]error, len(scenarios))
	var wg sync.WaitGroup
	for i, scenario := range scenarios {
		wg.Add(1)
		go func(i int, scenario model.Scenario) {
			defer wg.Done()
			errs[i] = e.runScenario(ctx, executionID, scenario, true)
		}(i, scenario)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			e.log.WithExecution(executionID).WithScenario(scenarios[i].ID, scenarios[i].Name).Error(err, "scenario run failed")
		}
	}
	return errors.Join(errs...)
}

// runScenario executes one scenario's events in delay order and writes
// the terminal status and history record.
func (e *Executor) runScenario(ctx context.Context, executionID string, scenario model.Scenario, batch bool) error {
	runLog := e.log.WithExecution(executionID).WithScenario(scenario.ID, scenario.Name)
	started := e.opts.Now()

	e.tracker.UpdateScenarioStatus(executionID, scenario.ID, model.StatusRunning)
	runLog.WithFields(map[string]any{"events": len(scenario.Events)}).Info("scenario started")

	order := make(map[string]int, len(scenario.Events))
	for i, ev := range scenario.Events {
		order[ev.ID] = i + 1
	}

	results := make([]model.EventResult, 0, len(scenario.Events))
	hadFailure := false
	lastDelay := 0

	for _, ev := range scenario.SortedEvents() {
		if wait := ev.Delay - lastDelay; wait > 0 {
			e.opts.Sleep(time.Duration(wait) * time.Second)
		}
		lastDelay = ev.Delay

		ref := tracker.EventRef{
			ScenarioID:   scenario.ID,
			ScenarioName: scenario.Name,
			Event:        ev,
			Order:        order[ev.ID],
		}
		e.tracker.UpsertEventStatus(executionID, ref, model.StatusRunning, "")

		message, err := e.dispatchEvent(ctx, executionID, scenario, ev)
		executedAt := e.opts.Now().UTC()

		result := model.EventResult{
			ID:         ev.ID,
			Type:       ev.Type,
			Delay:      ev.Delay,
			ExecutedAt: executedAt,
			Message:    message,
		}
		if err != nil {
			hadFailure = true
			result.Status = model.ResultStatusError
			result.Error = err.Error()
			e.tracker.UpsertEventStatus(executionID, ref, model.StatusFailed, err.Error())
			runLog.WithFields(map[string]any{"event_id": ev.ID, "type": string(ev.Type)}).Error(err, "event dispatch failed")
		} else {
			result.Status = model.ResultStatusSuccess
			e.tracker.UpsertEventStatus(executionID, ref, model.StatusCompleted, "")
			runLog.WithFields(map[string]any{"event_id": ev.ID, "type": string(ev.Type)}).Debug("event dispatched")
		}
		results = append(results, result)
	}

	status := model.StatusCompleted
	runStatus := model.RunStatusCompleted
	scenarioStatus := model.ScenarioStatusCompleted
	if hadFailure {
		status = model.StatusFailed
		runStatus = model.RunStatusFailed
		scenarioStatus = model.ScenarioStatusFailed
	}

	e.tracker.UpdateScenarioStatus(executionID, scenario.ID, status)
	if err := e.scenarios.UpdateStatus(scenario.ID, scenarioStatus); err != nil {
		runLog.Error(err, "failed to write scenario status back to storage")
	}

	runID := executionID
	if batch {
		runID = model.BatchRunID(executionID, scenario.ID)
	}
	run := model.ExecutionRun{
		ID:           runID,
		ScenarioID:   scenario.ID,
		ScenarioName: scenario.Name,
		Timestamp:    started.UTC(),
		Status:       runStatus,
		Duration:     int(e.opts.Now().Sub(started).Seconds()),
		Events:       results,
		Summary:      summarize(results),
	}
	if err := e.history.SaveRun(run); err != nil {
		e.tracker.UpdateScenarioStatus(executionID, scenario.ID, model.StatusFailed)
		if updateErr := e.scenarios.UpdateStatus(scenario.ID, model.ScenarioStatusFailed); updateErr != nil {
			runLog.Error(updateErr, "failed to mark scenario failed in storage")
		}
		return synerrors.NewExecutionError(scenario.ID, fmt.Errorf("failed to save run history: %w", err))
	}

	runLog.WithFields(map[string]any{
		"status":     string(runStatus),
		"successful": run.Summary.Successful,
		"failed":     run.Summary.Failed,
	}).Info("scenario finished")
	return nil
}

// dispatchEvent resolves the channel client and races the send against
// the per-channel timeout. A timeout counts as an event failure.
func (e *Executor) dispatchEvent(ctx context.Context, executionID string, scenario model.Scenario, ev model.Event) (string, error) {
	client, err := e.clients.Resolve(ev.Type)
	if err != nil {
		return "", err
	}

	timeout := e.opts.EventTimeout
	if ev.Type == model.EventTypeEmail {
		timeout = e.opts.EmailTimeout
	}

	decorated := decorate(ev, scenario, executionID)

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		message string
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		message, err := client.Send(sendCtx, decorated)
		done <- outcome{message: message, err: err}
	}()

	select {
	case out := <-done:
		return out.message, out.err
	case <-sendCtx.Done():
		return "", fmt.Errorf("event dispatch timed out after %s", timeout)
	}
}

// summarize aggregates per-event outcomes into the run summary.
func summarize(results []model.EventResult) model.RunSummary {
	summary := model.RunSummary{Total: len(results)}
	for _, r := range results {
		if r.Status == model.ResultStatusSuccess {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return summary
}
