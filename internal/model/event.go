package model

import (
	"fmt"
	"strings"

	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

// EventType discriminates the outbound channel an event targets.
type EventType string

const (
	EventTypeMonitorEvent EventType = "monitor-event"
	EventTypeMonitorLog   EventType = "monitor-log"
	EventTypeEmail        EventType = "email"
)

// Known reports whether t names a supported channel.
func (t EventType) Known() bool {
	switch t {
	case EventTypeMonitorEvent, EventTypeMonitorLog, EventTypeEmail:
		return true
	}
	return false
}

// EmailFormat selects how tracking metadata is merged into an email body.
type EmailFormat string

const (
	EmailFormatJSON      EmailFormat = "json"
	EmailFormatPlainText EmailFormat = "plain-text"
)

// MonitorEventPayload holds the fields specific to a monitoring-API event.
type MonitorEventPayload struct {
	Title          string `json:"title"`
	Text           string `json:"text"`
	AlertType      string `json:"alertType,omitempty"`
	Priority       int    `json:"priority,omitempty"`
	AggregationKey string `json:"aggregationKey,omitempty"`
	SourceTypeName string `json:"sourceTypeName,omitempty"`
	DateHappened   int64  `json:"dateHappened,omitempty"`
	DeviceName     string `json:"deviceName,omitempty"`
	Host           string `json:"host,omitempty"`
	RelatedEventID int64  `json:"relatedEventId,omitempty"`
}

// MonitorLogPayload holds the fields specific to a log-intake line.
type MonitorLogPayload struct {
	Message  string `json:"message"`
	Source   string `json:"source,omitempty"`
	LogTags  string `json:"logTags,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	Service  string `json:"service,omitempty"`
}

// EmailPayload holds the fields specific to an outbound email.
type EmailPayload struct {
	Subject string      `json:"subject"`
	Body    string      `json:"body"`
	Format  EmailFormat `json:"format,omitempty"`
}

// Event is the channel-agnostic envelope around one timed outbound action.
// Exactly one of the payload pointers matching Type must be set.
type Event struct {
	ID    string    `json:"id"`
	Type  EventType `json:"type"`
	Delay int       `json:"delay"`
	Tags  []string  `json:"tags,omitempty"`

	MonitorEvent *MonitorEventPayload `json:"monitorEvent,omitempty"`
	MonitorLog   *MonitorLogPayload   `json:"monitorLog,omitempty"`
	Email        *EmailPayload        `json:"email,omitempty"`
}

// Validate checks the envelope and the payload matching the event type.
func (e *Event) Validate() error {
	if e.ID == "" {
		return synerrors.NewValidationError("id", "event ID is required", nil)
	}
	if !e.Type.Known() {
		return synerrors.NewValidationError("type", fmt.Sprintf("unknown event type %q", e.Type), nil)
	}
	if e.Delay < 0 {
		return synerrors.NewValidationError("delay", "delay must be non-negative", nil)
	}
	for i, tag := range e.Tags {
		if strings.TrimSpace(tag) == "" {
			return synerrors.NewValidationError(fmt.Sprintf("tags[%d]", i), "tags must be non-empty strings", nil)
		}
	}

	switch e.Type {
	case EventTypeMonitorEvent:
		if e.MonitorEvent == nil {
			return synerrors.NewValidationError("monitorEvent", "monitor-event payload is required", nil)
		}
		if strings.TrimSpace(e.MonitorEvent.Title) == "" && strings.TrimSpace(e.MonitorEvent.Text) == "" {
			return synerrors.NewValidationError("monitorEvent", "either title or text must be provided", nil)
		}
	case EventTypeMonitorLog:
		if e.MonitorLog == nil {
			return synerrors.NewValidationError("monitorLog", "monitor-log payload is required", nil)
		}
		if strings.TrimSpace(e.MonitorLog.Message) == "" {
			return synerrors.NewValidationError("monitorLog.message", "message is required", nil)
		}
	case EventTypeEmail:
		if e.Email == nil {
			return synerrors.NewValidationError("email", "email payload is required", nil)
		}
		if strings.TrimSpace(e.Email.Subject) == "" {
			return synerrors.NewValidationError("email.subject", "subject is required", nil)
		}
		if strings.TrimSpace(e.Email.Body) == "" {
			return synerrors.NewValidationError("email.body", "message body is required", nil)
		}
	}

	return nil
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	out := e
	out.Tags = append([]string(nil), e.Tags...)
	if e.MonitorEvent != nil {
		payload := *e.MonitorEvent
		out.MonitorEvent = &payload
	}
	if e.MonitorLog != nil {
		payload := *e.MonitorLog
		out.MonitorLog = &payload
	}
	if e.Email != nil {
		payload := *e.Email
		out.Email = &payload
	}
	return out
}
