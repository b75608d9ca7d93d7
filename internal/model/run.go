package model

import "time"

// RunStatus is the terminal outcome of one scenario run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ResultStatus is the delivery outcome of a single event.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusError   ResultStatus = "error"
)

// EventResult records the outcome of one dispatched event.
type EventResult struct {
	ID         string       `json:"id"`
	Type       EventType    `json:"type"`
	Status     ResultStatus `json:"status"`
	Delay      int          `json:"delay"`
	ExecutedAt time.Time    `json:"executedAt"`
	Message    string       `json:"message"`
	Error      string       `json:"error,omitempty"`
}

// RunSummary aggregates event outcomes for one scenario run.
type RunSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ExecutionRun is the immutable history record of one completed scenario
// run. For single-scenario executions the ID equals the execution run ID;
// for batch executions it is "<executionRunID>-<scenarioID>".
type ExecutionRun struct {
	ID           string        `json:"id"`
	ScenarioID   string        `json:"scenarioId"`
	ScenarioName string        `json:"scenarioName"`
	Timestamp    time.Time     `json:"timestamp"`
	Status       RunStatus     `json:"status"`
	Duration     int           `json:"duration"`
	Events       []EventResult `json:"events"`
	Summary      RunSummary    `json:"summary"`
}

// BatchRunID derives the history record ID for one scenario of a batch.
func BatchRunID(executionRunID, scenarioID string) string {
	return executionRunID + "-" + scenarioID
}
