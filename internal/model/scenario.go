package model

import (
	"sort"
	"strings"
	"time"

	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

// ScenarioStatus is the lifecycle state persisted on a scenario record.
type ScenarioStatus string

const (
	ScenarioStatusDraft     ScenarioStatus = "draft"
	ScenarioStatusPending   ScenarioStatus = "pending"
	ScenarioStatusCompleted ScenarioStatus = "completed"
	ScenarioStatusFailed    ScenarioStatus = "failed"
)

// Scenario is a named, ordered set of timed events representing one
// synthetic incident simulation. The engine never mutates the event list;
// only the derived status is written back after a run.
type Scenario struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Events      []Event        `json:"events"`
	Status      ScenarioStatus `json:"status,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"createdAt,omitzero"`
	UpdatedAt   time.Time      `json:"updatedAt,omitzero"`
}

// Validate checks scenario identity and every event payload.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return synerrors.NewValidationError("name", "scenario name is required", nil)
	}
	for _, ev := range s.Events {
		if err := ev.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SortedEvents returns a copy of the scenario's events ordered by delay,
// stable with respect to the original order for equal delays.
func (s *Scenario) SortedEvents() []Event {
	sorted := make([]Event, len(s.Events))
	copy(sorted, s.Events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Delay < sorted[j].Delay
	})
	return sorted
}

// SanitizedName reduces the scenario name to [A-Za-z0-9_-] for use in
// channel tags, replacing every other rune with an underscore.
func (s *Scenario) SanitizedName() string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s.Name)
}
