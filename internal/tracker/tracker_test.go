package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/synthevents/internal/logger"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
	"github.com/alexisbeaulieu97/synthevents/internal/storage"
)

func testOptions() Options {
	return Options{
		DebounceWindow: 20 * time.Millisecond,
		CleanupGrace:   50 * time.Millisecond,
		StuckThreshold: 2 * time.Minute,
	}
}

func newTestTracker(t *testing.T) (*Tracker, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)
	tr := New(store, logger.Discard(), testOptions())
	t.Cleanup(tr.Close)
	return tr, store
}

func twoEventScenario(id, name string) model.Scenario {
	return model.Scenario{
		ID:   id,
		Name: name,
		Events: []model.Event{
			{ID: "evt-1", Type: model.EventTypeMonitorEvent, Delay: 0,
				MonitorEvent: &model.MonitorEventPayload{Title: "t"}},
			{ID: "evt-2", Type: model.EventTypeMonitorLog, Delay: 10,
				MonitorLog: &model.MonitorLogPayload{Message: "m"}},
		},
	}
}

func ref(sc model.Scenario, idx int) EventRef {
	return EventRef{
		ScenarioID:   sc.ID,
		ScenarioName: sc.Name,
		Event:        sc.Events[idx],
		Order:        idx + 1,
	}
}

func TestCreateExecutionSeedsPendingState(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	sc := twoEventScenario("scn-1", "disk full")
	tr.CreateExecution("run-1", []model.Scenario{sc})

	progress := tr.GetProgress("run-1")
	require.NotNil(t, progress)
	assert.Equal(t, 1, progress.TotalScenarios)
	assert.Equal(t, 0, progress.CompletedScenarios)
	assert.False(t, progress.StartedAt.IsZero())
	require.Len(t, progress.Scenarios, 1)

	events := progress.Scenarios[0].Events
	require.Len(t, events, 2)
	assert.Equal(t, model.StatusPending, events[0].Status)
	assert.Equal(t, 1, events[0].ExecutionOrder)
	assert.Equal(t, 2, events[1].ExecutionOrder)
	assert.Equal(t, 10, events[1].Delay)
}

func TestGetProgressUnknownExecution(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	assert.Nil(t, tr.GetProgress("ghost"))
}

func TestUpsertEventStatusLifecycle(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	sc := twoEventScenario("scn-1", "disk full")
	tr.CreateExecution("run-1", []model.Scenario{sc})

	require.True(t, tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusRunning, ""))
	progress := tr.GetProgress("run-1")
	event := progress.Scenarios[0].Events[0]
	assert.Equal(t, model.StatusRunning, event.Status)
	assert.False(t, event.StartedAt.IsZero())
	assert.True(t, event.CompletedAt.IsZero())

	require.True(t, tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusCompleted, ""))
	event = tr.GetProgress("run-1").Scenarios[0].Events[0]
	assert.Equal(t, model.StatusCompleted, event.Status)
	assert.False(t, event.CompletedAt.IsZero())
}

func TestUpsertEventStatusNeverSkipsRunning(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	sc := twoEventScenario("scn-1", "disk full")
	tr.CreateExecution("run-1", []model.Scenario{sc})

	// pending -> completed is not a legal transition; the update is a no-op
	require.True(t, tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusCompleted, ""))
	assert.Equal(t, model.StatusPending, tr.GetProgress("run-1").Scenarios[0].Events[0].Status)
}

func TestUpsertEventStatusTerminalStateIsFinal(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	sc := twoEventScenario("scn-1", "disk full")
	tr.CreateExecution("run-1", []model.Scenario{sc})

	require.True(t, tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusRunning, ""))
	require.True(t, tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusFailed, "boom"))
	require.True(t, tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusCompleted, ""))

	event := tr.GetProgress("run-1").Scenarios[0].Events[0]
	assert.Equal(t, model.StatusFailed, event.Status)
	assert.Equal(t, "boom", event.Error)
}

func TestUpsertEventStatusUnknownExecution(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	sc := twoEventScenario("scn-1", "disk full")
	assert.False(t, tr.UpsertEventStatus("ghost", ref(sc, 0), model.StatusRunning, ""))
}

func TestUpsertEventStatusCreatesScaffolding(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	tr.CreateExecution("run-1", nil)

	sc := twoEventScenario("scn-late", "late seed")
	require.True(t, tr.UpsertEventStatus("run-1", ref(sc, 1), model.StatusRunning, ""))

	progress := tr.GetProgress("run-1")
	scenario := progress.FindScenario("scn-late")
	require.NotNil(t, scenario)
	event := scenario.FindEvent("evt-2")
	require.NotNil(t, event)
	assert.Equal(t, model.StatusRunning, event.Status)
	assert.Equal(t, 2, event.ExecutionOrder)
}

func TestScenarioCompletionCountsAreMonotonic(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	a := twoEventScenario("scn-a", "a")
	b := twoEventScenario("scn-b", "b")
	tr.CreateExecution("run-1", []model.Scenario{a, b})

	tr.UpdateScenarioStatus("run-1", "scn-a", model.StatusRunning)
	progress := tr.GetProgress("run-1")
	assert.Equal(t, 0, progress.CompletedScenarios)
	assert.False(t, progress.Scenarios[0].StartedAt.IsZero())

	tr.UpdateScenarioStatus("run-1", "scn-a", model.StatusCompleted)
	assert.Equal(t, 1, tr.GetProgress("run-1").CompletedScenarios)

	// repeated terminal updates never double-count
	tr.UpdateScenarioStatus("run-1", "scn-a", model.StatusCompleted)
	progress = tr.GetProgress("run-1")
	assert.Equal(t, 1, progress.CompletedScenarios)
	assert.True(t, progress.CompletedAt.IsZero())

	tr.UpdateScenarioStatus("run-1", "scn-b", model.StatusFailed)
	progress = tr.GetProgress("run-1")
	assert.Equal(t, 2, progress.CompletedScenarios)
	assert.False(t, progress.CompletedAt.IsZero())
	assert.True(t, progress.Terminal())
}

func TestUpdateScenarioStatusUnknownTargetsAreIgnored(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	tr.UpdateScenarioStatus("ghost", "scn-1", model.StatusRunning)

	tr.CreateExecution("run-1", []model.Scenario{twoEventScenario("scn-1", "a")})
	tr.UpdateScenarioStatus("run-1", "ghost", model.StatusCompleted)
	assert.Equal(t, 0, tr.GetProgress("run-1").CompletedScenarios)
}

func TestCompletedExecutionRemovedAfterGrace(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	tr.CreateExecution("run-1", []model.Scenario{twoEventScenario("scn-1", "a")})
	tr.UpdateScenarioStatus("run-1", "scn-1", model.StatusRunning)
	tr.UpdateScenarioStatus("run-1", "scn-1", model.StatusCompleted)

	// still visible inside the grace window
	require.NotNil(t, tr.GetProgress("run-1"))

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		_, ok := tr.executions["run-1"]
		tr.mu.Unlock()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestHydrateRecoversNonTerminalExecutions(t *testing.T) {
	t.Parallel()

	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	first := New(store, logger.Discard(), testOptions())
	first.CreateExecution("run-1", []model.Scenario{twoEventScenario("scn-1", "a")})
	sc := twoEventScenario("scn-1", "a")
	first.UpsertEventStatus("run-1", ref(sc, 0), model.StatusRunning, "")
	first.Close()

	second := New(store, logger.Discard(), testOptions())
	t.Cleanup(second.Close)

	progress := second.GetProgress("run-1")
	require.NotNil(t, progress)
	assert.Equal(t, model.StatusRunning, progress.Scenarios[0].Events[0].Status)
}

func TestGetProgressReloadsMirrorOnMiss(t *testing.T) {
	t.Parallel()

	tr, store := newTestTracker(t)

	doc := map[string]*model.ExecutionProgress{
		"run-ext": {
			ExecutionID:    "run-ext",
			TotalScenarios: 1,
			StartedAt:      time.Now().UTC(),
			Scenarios:      []model.ScenarioProgress{{ScenarioID: "scn-1", Status: model.StatusPending}},
		},
	}
	require.NoError(t, store.Write("active-executions.json", doc))

	progress := tr.GetProgress("run-ext")
	require.NotNil(t, progress)
	assert.Equal(t, 1, progress.TotalScenarios)
}

func TestTerminalEventUpdatePersistsImmediately(t *testing.T) {
	t.Parallel()

	tr, store := newTestTracker(t)
	sc := twoEventScenario("scn-1", "a")
	tr.CreateExecution("run-1", []model.Scenario{sc})
	tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusRunning, "")
	tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusFailed, "boom")

	// no debounce wait needed: terminal transitions flush synchronously
	var doc map[string]*model.ExecutionProgress
	found, err := store.Read("active-executions.json", &doc)
	require.NoError(t, err)
	require.True(t, found)
	require.Contains(t, doc, "run-1")
	assert.Equal(t, model.StatusFailed, doc["run-1"].Scenarios[0].Events[0].Status)
}

func TestMirrorOmitsTerminalExecutions(t *testing.T) {
	t.Parallel()

	tr, store := newTestTracker(t)
	tr.CreateExecution("run-1", []model.Scenario{twoEventScenario("scn-1", "a")})
	tr.UpdateScenarioStatus("run-1", "scn-1", model.StatusRunning)
	tr.UpdateScenarioStatus("run-1", "scn-1", model.StatusCompleted)
	tr.Close()

	var doc map[string]*model.ExecutionProgress
	found, err := store.Read("active-executions.json", &doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, doc, "run-1")
}

func TestFixStuckExecution(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	sc := twoEventScenario("scn-1", "a")
	tr.CreateExecution("run-1", []model.Scenario{sc})
	tr.UpsertEventStatus("run-1", ref(sc, 0), model.StatusRunning, "")

	// not stale yet
	assert.False(t, tr.FixStuckExecution("run-1"))

	tr.mu.Lock()
	tr.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	tr.mu.Unlock()

	assert.True(t, tr.FixStuckExecution("run-1"))
	event := tr.GetProgress("run-1").Scenarios[0].Events[0]
	assert.Equal(t, model.StatusFailed, event.Status)
	assert.Contains(t, event.Error, "timed out")

	// idempotent: nothing left to repair
	assert.False(t, tr.FixStuckExecution("run-1"))
	assert.False(t, tr.FixStuckExecution("ghost"))
}

func TestSweepStuckCoversAllExecutions(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	a := twoEventScenario("scn-a", "a")
	b := twoEventScenario("scn-b", "b")
	tr.CreateExecution("run-1", []model.Scenario{a})
	tr.CreateExecution("run-2", []model.Scenario{b})
	tr.UpsertEventStatus("run-1", ref(a, 0), model.StatusRunning, "")
	tr.UpsertEventStatus("run-2", ref(b, 0), model.StatusRunning, "")

	tr.mu.Lock()
	tr.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	tr.mu.Unlock()

	assert.Equal(t, 2, tr.SweepStuck())
	assert.Equal(t, 0, tr.SweepStuck())
}
