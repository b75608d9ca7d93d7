package progress

import (
	"time"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

// LiveSource serves in-flight progress for executions the tracker still
// remembers.
type LiveSource interface {
	GetProgress(executionID string) *model.ExecutionProgress
}

// HistorySource serves durable run records for executions whose live
// state has already been cleaned up.
type HistorySource interface {
	LoadRun(id string) (*model.ExecutionRun, error)
	LoadBatchRuns(executionRunID string) ([]model.ExecutionRun, error)
}

// Resolver answers "what is execution X's status" across the live
// tracker and durable history, so pollers need not know where the
// answer lives. Live state wins; otherwise a terminal view is
// synthesized from history, first by exact record ID, then by the
// batch naming convention.
type Resolver struct {
	live    LiveSource
	history HistorySource
}

// NewResolver constructs a Resolver over the two progress sources.
func NewResolver(live LiveSource, history HistorySource) *Resolver {
	return &Resolver{live: live, history: history}
}

// Resolve returns the progress view for an execution ID, or a not-found
// error when the ID is unknown everywhere. Not-found is distinct from a
// pending execution, which resolves with zero completed scenarios.
func (r *Resolver) Resolve(executionID string) (*model.ExecutionProgress, error) {
	if live := r.live.GetProgress(executionID); live != nil {
		return live, nil
	}

	run, err := r.history.LoadRun(executionID)
	if err == nil {
		return synthesizeSingle(executionID, *run), nil
	}
	if !synerrors.IsNotFound(err) {
		return nil, err
	}

	runs, err := r.history.LoadBatchRuns(executionID)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		return synthesizeBatch(executionID, runs), nil
	}

	return nil, synerrors.NewNotFoundError("execution", executionID)
}

// synthesizeSingle rebuilds a one-scenario terminal progress view from a
// history record.
func synthesizeSingle(executionID string, run model.ExecutionRun) *model.ExecutionProgress {
	completedAt := runCompletedAt(run)
	return &model.ExecutionProgress{
		ExecutionID:        executionID,
		Scenarios:          []model.ScenarioProgress{scenarioFromRun(run, completedAt)},
		TotalScenarios:     1,
		CompletedScenarios: 1,
		StartedAt:          run.Timestamp,
		CompletedAt:        completedAt,
	}
}

// synthesizeBatch rebuilds a multi-scenario terminal view from the batch
// records, spanning the earliest start to the latest completion.
func synthesizeBatch(executionID string, runs []model.ExecutionRun) *model.ExecutionProgress {
	progress := &model.ExecutionProgress{
		ExecutionID:        executionID,
		Scenarios:          make([]model.ScenarioProgress, 0, len(runs)),
		TotalScenarios:     len(runs),
		CompletedScenarios: len(runs),
	}

	for _, run := range runs {
		completedAt := runCompletedAt(run)
		progress.Scenarios = append(progress.Scenarios, scenarioFromRun(run, completedAt))

		if progress.StartedAt.IsZero() || run.Timestamp.Before(progress.StartedAt) {
			progress.StartedAt = run.Timestamp
		}
		if completedAt.After(progress.CompletedAt) {
			progress.CompletedAt = completedAt
		}
	}
	return progress
}

func scenarioFromRun(run model.ExecutionRun, completedAt time.Time) model.ScenarioProgress {
	status := model.StatusFailed
	if run.Status == model.RunStatusCompleted {
		status = model.StatusCompleted
	}

	sp := model.ScenarioProgress{
		ScenarioID:   run.ScenarioID,
		ScenarioName: run.ScenarioName,
		Status:       status,
		Events:       make([]model.EventProgress, 0, len(run.Events)),
		StartedAt:    run.Timestamp,
		CompletedAt:  completedAt,
	}
	for i, ev := range run.Events {
		eventStatus := model.StatusFailed
		if ev.Status == model.ResultStatusSuccess {
			eventStatus = model.StatusCompleted
		}
		sp.Events = append(sp.Events, model.EventProgress{
			EventID:        ev.ID,
			Type:           ev.Type,
			Status:         eventStatus,
			Delay:          ev.Delay,
			ExecutionOrder: i + 1,
			StartedAt:      ev.ExecutedAt,
			CompletedAt:    ev.ExecutedAt,
			Error:          ev.Error,
		})
	}
	return sp
}

// runCompletedAt derives the completion instant from the recorded start
// and duration.
func runCompletedAt(run model.ExecutionRun) time.Time {
	return run.Timestamp.Add(time.Duration(run.Duration) * time.Second)
}
