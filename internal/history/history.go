package history

import (
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
	"github.com/alexisbeaulieu97/synthevents/internal/storage"
	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

const historyFile = "execution-history.json"

// maxRuns caps the history document so it cannot grow without bound.
const maxRuns = 100

// Store is the append-only log of completed scenario runs, newest first.
// Records are immutable once written.
type Store struct {
	store *storage.Store
	mu    sync.Mutex
}

// NewStore returns a history Store backed by the given document store.
func NewStore(store *storage.Store) *Store {
	return &Store{store: store}
}

// All returns every retained run, newest first.
func (s *Store) All() ([]model.ExecutionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]model.ExecutionRun, error) {
	var runs []model.ExecutionRun
	if _, err := s.store.Read(historyFile, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// SaveRun prepends a run and trims the log to the retention cap.
func (s *Store) SaveRun(run model.ExecutionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.load()
	if err != nil {
		return err
	}

	runs = append([]model.ExecutionRun{run}, runs...)
	if len(runs) > maxRuns {
		runs = runs[:maxRuns]
	}
	return s.store.Write(historyFile, runs)
}

// LoadRun retrieves a run by its exact record ID.
func (s *Store) LoadRun(id string) (*model.ExecutionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].ID == id {
			run := runs[i]
			return &run, nil
		}
	}
	return nil, synerrors.NewNotFoundError("execution run", id)
}

// LoadBatchRuns returns every run whose record ID uses the batch naming
// convention "<executionRunID>-<scenarioID>", newest first.
func (s *Store) LoadBatchRuns(executionRunID string) ([]model.ExecutionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.load()
	if err != nil {
		return nil, err
	}

	prefix := executionRunID + "-"
	var matched []model.ExecutionRun
	for _, run := range runs {
		if strings.HasPrefix(run.ID, prefix) {
			matched = append(matched, run)
		}
	}
	return matched, nil
}

// ScenarioHistory returns every retained run for one scenario, newest first.
func (s *Store) ScenarioHistory(scenarioID string) ([]model.ExecutionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.load()
	if err != nil {
		return nil, err
	}

	var matched []model.ExecutionRun
	for _, run := range runs {
		if run.ScenarioID == scenarioID {
			matched = append(matched, run)
		}
	}
	return matched, nil
}

// LatestRun returns the most recent run for a scenario, or a not-found
// error when the scenario has never completed a run.
func (s *Store) LatestRun(scenarioID string) (*model.ExecutionRun, error) {
	runs, err := s.ScenarioHistory(scenarioID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, synerrors.NewNotFoundError("execution run", scenarioID)
	}
	run := runs[0]
	return &run, nil
}
