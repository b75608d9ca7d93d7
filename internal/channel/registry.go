package channel

import (
	"github.com/alexisbeaulieu97/synthevents/internal/config"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
	"github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

// Registry resolves event types to their delivery clients.
type Registry struct {
	clients map[model.EventType]Client
}

// NewRegistry builds clients for every supported event type from settings.
func NewRegistry(settings config.Settings) *Registry {
	return &Registry{
		clients: map[model.EventType]Client{
			model.EventTypeMonitorEvent: NewMonitorEventsClient(settings.Monitor),
			model.EventTypeMonitorLog:   NewMonitorLogsClient(settings.Monitor),
			model.EventTypeEmail:        NewEmailClient(settings.Email, settings.Monitor.EmailAddress),
		},
	}
}

// NewRegistryWithClients builds a registry from explicit clients. Used in tests.
func NewRegistryWithClients(clients map[model.EventType]Client) *Registry {
	return &Registry{clients: clients}
}

// Resolve returns the client for the event type.
func (r *Registry) Resolve(eventType model.EventType) (Client, error) {
	client, ok := r.clients[eventType]
	if !ok {
		return nil, errors.NewNotFoundError("channel", string(eventType))
	}
	return client, nil
}
