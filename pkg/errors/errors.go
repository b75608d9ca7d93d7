package errors

import (
	"errors"
	"fmt"
)

// ValidationError captures invalid scenario, event or settings input.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a runtime failure while executing a scenario.
// EventID is empty when the failure is scenario-wide.
type ExecutionError struct {
	ScenarioID string
	EventID    string
	Err        error
}

// NewExecutionError constructs an ExecutionError for a scenario-level failure.
func NewExecutionError(scenarioID string, err error) error {
	return &ExecutionError{ScenarioID: scenarioID, Err: err}
}

// NewEventError constructs an ExecutionError scoped to a single event.
func NewEventError(scenarioID, eventID string, err error) error {
	return &ExecutionError{ScenarioID: scenarioID, EventID: eventID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.EventID != "" {
		return fmt.Sprintf("execution error: scenario %s, event %s: %v", e.ScenarioID, e.EventID, e.Err)
	}
	if e.ScenarioID != "" {
		return fmt.Sprintf("execution error: scenario %s: %v", e.ScenarioID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NotFoundError distinguishes "absent everywhere" from "found but pending".
// Kind names the missing entity (execution, scenario, run).
type NotFoundError struct {
	Kind string
	ID   string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
