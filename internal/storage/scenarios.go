package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

const scenariosFile = "scenarios.json"

// ScenarioStore persists the scenario collection as one JSON document.
type ScenarioStore struct {
	store *Store
	mu    sync.Mutex
}

// NewScenarioStore returns a ScenarioStore backed by the given Store.
func NewScenarioStore(store *Store) *ScenarioStore {
	return &ScenarioStore{store: store}
}

// List returns every stored scenario.
func (s *ScenarioStore) List() ([]model.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *ScenarioStore) load() ([]model.Scenario, error) {
	var scenarios []model.Scenario
	if _, err := s.store.Read(scenariosFile, &scenarios); err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (s *ScenarioStore) save(scenarios []model.Scenario) error {
	return s.store.Write(scenariosFile, scenarios)
}

// Get retrieves a scenario by ID.
func (s *ScenarioStore) Get(id string) (*model.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range scenarios {
		if scenarios[i].ID == id {
			sc := scenarios[i]
			return &sc, nil
		}
	}
	return nil, synerrors.NewNotFoundError("scenario", id)
}

// Create stores a new scenario with a generated ID and timestamps.
func (s *ScenarioStore) Create(scenario model.Scenario) (*model.Scenario, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios, err := s.load()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scenario.ID = uuid.NewString()
	scenario.CreatedAt = now
	scenario.UpdatedAt = now
	if scenario.Status == "" {
		scenario.Status = model.ScenarioStatusDraft
	}

	scenarios = append(scenarios, scenario)
	if err := s.save(scenarios); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Update replaces the mutable fields of an existing scenario.
func (s *ScenarioStore) Update(id string, updated model.Scenario) (*model.Scenario, error) {
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range scenarios {
		if scenarios[i].ID != id {
			continue
		}
		updated.ID = id
		updated.CreatedAt = scenarios[i].CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		scenarios[i] = updated
		if err := s.save(scenarios); err != nil {
			return nil, err
		}
		return &scenarios[i], nil
	}
	return nil, synerrors.NewNotFoundError("scenario", id)
}

// UpdateStatus writes back the derived status after a run.
func (s *ScenarioStore) UpdateStatus(id string, status model.ScenarioStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios, err := s.load()
	if err != nil {
		return err
	}

	for i := range scenarios {
		if scenarios[i].ID != id {
			continue
		}
		scenarios[i].Status = status
		scenarios[i].UpdatedAt = time.Now().UTC()
		return s.save(scenarios)
	}
	return synerrors.NewNotFoundError("scenario", id)
}

// Delete removes a scenario by ID.
func (s *ScenarioStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios, err := s.load()
	if err != nil {
		return err
	}

	for i := range scenarios {
		if scenarios[i].ID == id {
			scenarios = append(scenarios[:i], scenarios[i+1:]...)
			return s.save(scenarios)
		}
	}
	return synerrors.NewNotFoundError("scenario", id)
}

// Import stores incoming scenarios. With merge true, existing IDs are
// replaced and unknown IDs appended; otherwise the whole collection is
// overwritten.
func (s *ScenarioStore) Import(incoming []model.Scenario, merge bool) ([]model.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	if !merge {
		for i := range incoming {
			if incoming[i].ID == "" {
				incoming[i].ID = uuid.NewString()
			}
			incoming[i].UpdatedAt = now
		}
		if err := s.save(incoming); err != nil {
			return nil, err
		}
		return incoming, nil
	}

	scenarios, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, in := range incoming {
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		in.UpdatedAt = now
		replaced := false
		for i := range scenarios {
			if scenarios[i].ID == in.ID {
				in.CreatedAt = scenarios[i].CreatedAt
				scenarios[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			in.CreatedAt = now
			scenarios = append(scenarios, in)
		}
	}

	if err := s.save(scenarios); err != nil {
		return nil, err
	}
	return scenarios, nil
}

// Tags returns the distinct tags across all scenarios, sorted.
func (s *ScenarioStore) Tags() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios, err := s.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, sc := range scenarios {
		for _, tag := range sc.Tags {
			seen[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

// BatchTagOperation describes a bulk tag mutation across scenarios.
type BatchTagOperation struct {
	ScenarioIDs []string `json:"scenarioIds"`
	Operation   string   `json:"operation"` // add, remove, replace
	Tags        []string `json:"tags"`
}

// BatchTagResult reports which scenarios were updated and which failed.
type BatchTagResult struct {
	Updated []model.Scenario `json:"updatedScenarios"`
	Errors  []BatchTagError  `json:"errors,omitempty"`
}

// BatchTagError pairs a scenario ID with the failure it hit.
type BatchTagError struct {
	ScenarioID string `json:"scenarioId"`
	Error      string `json:"error"`
}

// BatchTags applies a tag operation to several scenarios at once. Unknown
// scenario IDs are reported per-ID without aborting the rest.
func (s *ScenarioStore) BatchTags(op BatchTagOperation) (*BatchTagResult, error) {
	switch op.Operation {
	case "add", "remove", "replace":
	default:
		return nil, synerrors.NewValidationError("operation", fmt.Sprintf("unknown tag operation %q", op.Operation), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios, err := s.load()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(scenarios))
	for i := range scenarios {
		index[scenarios[i].ID] = i
	}

	result := &BatchTagResult{}
	now := time.Now().UTC()

	for _, id := range op.ScenarioIDs {
		i, ok := index[id]
		if !ok {
			result.Errors = append(result.Errors, BatchTagError{ScenarioID: id, Error: "scenario not found"})
			continue
		}

		switch op.Operation {
		case "add":
			scenarios[i].Tags = mergeTags(scenarios[i].Tags, op.Tags)
		case "remove":
			scenarios[i].Tags = removeTags(scenarios[i].Tags, op.Tags)
		case "replace":
			scenarios[i].Tags = append([]string(nil), op.Tags...)
		}
		scenarios[i].UpdatedAt = now
		result.Updated = append(result.Updated, scenarios[i])
	}

	if len(result.Updated) > 0 {
		if err := s.save(scenarios); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeTags(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := append([]string(nil), existing...)
	for _, tag := range existing {
		seen[tag] = struct{}{}
	}
	for _, tag := range add {
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

func removeTags(existing, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, tag := range remove {
		drop[tag] = struct{}{}
	}
	out := existing[:0:0]
	for _, tag := range existing {
		if _, ok := drop[tag]; !ok {
			out = append(out, tag)
		}
	}
	return out
}
