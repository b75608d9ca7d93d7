// Package channel implements the three outbound delivery clients: the
// monitoring-events API, the log-intake endpoint, and the email gateway.
// Each client satisfies the same contract so the executor can dispatch
// purely by event type.
package channel

import (
	"context"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
)

// ValidationResult reports whether an event is acceptable to a channel.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ConnectionResult reports the outcome of a channel connectivity probe.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client is the contract every outbound channel implements. Send returns
// a human-readable delivery message on success and a descriptive error on
// failure; it must honor ctx cancellation.
type Client interface {
	Send(ctx context.Context, ev model.Event) (string, error)
	Validate(ev model.Event) ValidationResult
	TestConnection(ctx context.Context) ConnectionResult
}
