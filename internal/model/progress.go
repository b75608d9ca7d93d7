package model

import "time"

// Status is the live progress state of an event, scenario or execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal step of
// the pending -> running -> {completed, failed} machine. Terminal states
// are never re-enterable and running is never skipped.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next.Terminal()
	}
	return false
}

// EventProgress is the live state of one event inside a running scenario.
type EventProgress struct {
	EventID        string    `json:"eventId"`
	Type           EventType `json:"type"`
	Status         Status    `json:"status"`
	Delay          int       `json:"delay"`
	ExecutionOrder int       `json:"executionOrder,omitempty"`
	StartedAt      time.Time `json:"startedAt,omitzero"`
	CompletedAt    time.Time `json:"completedAt,omitzero"`
	Error          string    `json:"error,omitempty"`
}

// ScenarioProgress is the live state of one scenario inside an execution.
type ScenarioProgress struct {
	ScenarioID   string          `json:"scenarioId"`
	ScenarioName string          `json:"scenarioName"`
	Status       Status          `json:"status"`
	Events       []EventProgress `json:"events"`
	StartedAt    time.Time       `json:"startedAt,omitzero"`
	CompletedAt  time.Time       `json:"completedAt,omitzero"`
}

// FindEvent returns the progress entry for the given event ID, or nil.
func (s *ScenarioProgress) FindEvent(eventID string) *EventProgress {
	for i := range s.Events {
		if s.Events[i].EventID == eventID {
			return &s.Events[i]
		}
	}
	return nil
}

// ExecutionProgress is the pollable view of one execution run covering
// one or more scenarios.
type ExecutionProgress struct {
	ExecutionID        string             `json:"executionId"`
	Scenarios          []ScenarioProgress `json:"scenarios"`
	TotalScenarios     int                `json:"totalScenarios"`
	CompletedScenarios int                `json:"completedScenarios"`
	StartedAt          time.Time          `json:"startedAt"`
	CompletedAt        time.Time          `json:"completedAt,omitzero"`
}

// Terminal reports whether every scenario in the execution has finished.
func (p *ExecutionProgress) Terminal() bool {
	return p.CompletedScenarios == p.TotalScenarios
}

// FindScenario returns the progress entry for the given scenario ID, or nil.
func (p *ExecutionProgress) FindScenario(scenarioID string) *ScenarioProgress {
	for i := range p.Scenarios {
		if p.Scenarios[i].ScenarioID == scenarioID {
			return &p.Scenarios[i]
		}
	}
	return nil
}

// Clone returns a deep copy so pollers never share slices with the tracker.
func (p *ExecutionProgress) Clone() *ExecutionProgress {
	if p == nil {
		return nil
	}
	out := *p
	out.Scenarios = make([]ScenarioProgress, len(p.Scenarios))
	for i, sc := range p.Scenarios {
		copied := sc
		copied.Events = append([]EventProgress(nil), sc.Events...)
		out.Scenarios[i] = copied
	}
	return &out
}
