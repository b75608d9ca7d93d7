package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

type fakeLive struct {
	progress map[string]*model.ExecutionProgress
}

func (f *fakeLive) GetProgress(executionID string) *model.ExecutionProgress {
	return f.progress[executionID]
}

type fakeHistory struct {
	runs []model.ExecutionRun
}

func (f *fakeHistory) LoadRun(id string) (*model.ExecutionRun, error) {
	for i := range f.runs {
		if f.runs[i].ID == id {
			run := f.runs[i]
			return &run, nil
		}
	}
	return nil, synerrors.NewNotFoundError("execution run", id)
}

func (f *fakeHistory) LoadBatchRuns(executionRunID string) ([]model.ExecutionRun, error) {
	prefix := executionRunID + "-"
	var matched []model.ExecutionRun
	for _, run := range f.runs {
		if len(run.ID) > len(prefix) && run.ID[:len(prefix)] == prefix {
			matched = append(matched, run)
		}
	}
	return matched, nil
}

func sampleRun(id, scenarioID string, status model.RunStatus, at time.Time, duration int) model.ExecutionRun {
	return model.ExecutionRun{
		ID:           id,
		ScenarioID:   scenarioID,
		ScenarioName: "Scenario " + scenarioID,
		Timestamp:    at,
		Status:       status,
		Duration:     duration,
		Events: []model.EventResult{
			{ID: "e1", Type: model.EventTypeMonitorEvent, Status: model.ResultStatusSuccess, ExecutedAt: at},
			{ID: "e2", Type: model.EventTypeEmail, Status: model.ResultStatusError, Error: "boom", ExecutedAt: at},
		},
		Summary: model.RunSummary{Total: 2, Successful: 1, Failed: 1},
	}
}

func TestResolvePrefersLiveProgress(t *testing.T) {
	live := &fakeLive{progress: map[string]*model.ExecutionProgress{
		"run-1": {ExecutionID: "run-1", TotalScenarios: 1},
	}}
	history := &fakeHistory{runs: []model.ExecutionRun{
		sampleRun("run-1", "s1", model.RunStatusCompleted, time.Now(), 5),
	}}

	resolver := NewResolver(live, history)
	progress, err := resolver.Resolve("run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, progress.CompletedScenarios)
}

func TestResolveSynthesizesFromExactHistoryRecord(t *testing.T) {
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{runs: []model.ExecutionRun{
		sampleRun("run-1", "s1", model.RunStatusFailed, started, 42),
	}}

	resolver := NewResolver(&fakeLive{}, history)
	progress, err := resolver.Resolve("run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", progress.ExecutionID)
	assert.Equal(t, 1, progress.TotalScenarios)
	assert.Equal(t, 1, progress.CompletedScenarios)
	assert.True(t, progress.Terminal())
	assert.Equal(t, started, progress.StartedAt)
	assert.Equal(t, started.Add(42*time.Second), progress.CompletedAt)

	require.Len(t, progress.Scenarios, 1)
	scenario := progress.Scenarios[0]
	assert.Equal(t, model.StatusFailed, scenario.Status)
	require.Len(t, scenario.Events, 2)
	assert.Equal(t, model.StatusCompleted, scenario.Events[0].Status)
	assert.Equal(t, model.StatusFailed, scenario.Events[1].Status)
	assert.Equal(t, "boom", scenario.Events[1].Error)
}

func TestResolveSynthesizesBatchFromPrefix(t *testing.T) {
	early := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(30 * time.Second)
	history := &fakeHistory{runs: []model.ExecutionRun{
		sampleRun("run-1-s1", "s1", model.RunStatusCompleted, late, 10),
		sampleRun("run-1-s2", "s2", model.RunStatusFailed, early, 90),
	}}

	resolver := NewResolver(&fakeLive{}, history)
	progress, err := resolver.Resolve("run-1")
	require.NoError(t, err)

	assert.Equal(t, 2, progress.TotalScenarios)
	assert.Equal(t, 2, progress.CompletedScenarios)
	assert.Equal(t, early, progress.StartedAt)
	assert.Equal(t, early.Add(90*time.Second), progress.CompletedAt)

	require.NotNil(t, progress.FindScenario("s1"))
	require.NotNil(t, progress.FindScenario("s2"))
	assert.Equal(t, model.StatusCompleted, progress.FindScenario("s1").Status)
	assert.Equal(t, model.StatusFailed, progress.FindScenario("s2").Status)
}

func TestResolveUnknownExecutionIsNotFound(t *testing.T) {
	resolver := NewResolver(&fakeLive{}, &fakeHistory{})
	_, err := resolver.Resolve("missing")
	require.Error(t, err)
	assert.True(t, synerrors.IsNotFound(err))
}
