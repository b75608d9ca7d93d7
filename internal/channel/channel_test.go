package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/synthevents/internal/config"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
)

func monitorCfg() config.MonitorConfig {
	return config.MonitorConfig{
		APIKey: "api-key",
		AppKey: "app-key",
		Site:   "api.example.com",
	}
}

func TestMonitorEventsClientSendsNormalizedPayload(t *testing.T) {
	var captured monitorEventWire
	var gotAPIKey, gotAppKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("DD-API-KEY")
		gotAppKey = r.Header.Get("DD-APPLICATION-KEY")
		assert.Equal(t, "/api/v1/events", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewMonitorEventsClient(monitorCfg(), WithEventsBaseURL(srv.URL))
	client.now = func() time.Time { return time.Unix(1700000000, 0) }

	msg, err := client.Send(context.Background(), model.Event{
		ID:   "ev1",
		Type: model.EventTypeMonitorEvent,
		Tags: []string{"env:test", ""},
		MonitorEvent: &model.MonitorEventPayload{
			Text:     "something happened",
			Priority: 2,
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	assert.Equal(t, "api-key", gotAPIKey)
	assert.Equal(t, "app-key", gotAppKey)
	assert.Equal(t, "Synthetic Event", captured.Title)
	assert.Equal(t, "something happened", captured.Text)
	assert.Equal(t, "info", captured.AlertType)
	assert.Equal(t, "normal", captured.Priority)
	assert.Equal(t, "synthetic-events", captured.SourceTypeName)
	assert.Equal(t, int64(1700000000), captured.DateHappened)
	assert.Equal(t, []string{"env:test"}, captured.Tags)
}

func TestMonitorEventsClientLowPriorityDefault(t *testing.T) {
	client := NewMonitorEventsClient(monitorCfg())
	wire := client.buildWirePayload(model.Event{
		Type:         model.EventTypeMonitorEvent,
		MonitorEvent: &model.MonitorEventPayload{Title: "t"},
	})
	assert.Equal(t, "low", wire.Priority)
	assert.Equal(t, "t", wire.Text)
}

func TestMonitorEventsClientForbiddenGuidance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewMonitorEventsClient(monitorCfg(), WithEventsBaseURL(srv.URL))
	_, err := client.Send(context.Background(), model.Event{
		ID:           "ev1",
		Type:         model.EventTypeMonitorEvent,
		MonitorEvent: &model.MonitorEventPayload{Title: "t"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "events_write")
}

func TestMonitorEventsClientValidate(t *testing.T) {
	client := NewMonitorEventsClient(monitorCfg())

	result := client.Validate(model.Event{Type: model.EventTypeMonitorEvent})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "monitor-event payload is required")

	result = client.Validate(model.Event{
		Type:         model.EventTypeMonitorEvent,
		Delay:        -1,
		MonitorEvent: &model.MonitorEventPayload{Title: "t"},
	})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "delay must be non-negative")
}

func TestIntakeURLForSite(t *testing.T) {
	assert.Equal(t, "https://http-intake.logs.example.com/api/v2/logs", intakeURLForSite("api.example.com"))
	assert.Equal(t, "https://http-intake.logs.example.com/api/v2/logs", intakeURLForSite("https://api.example.com"))
	assert.Equal(t, "https://http-intake.logs.example.com/api/v2/logs", intakeURLForSite("example.com"))
}

func TestMonitorLogsClientSendsIntakeEntry(t *testing.T) {
	var captured []monitorLogWire

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "api-key", r.Header.Get("DD-API-KEY"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewMonitorLogsClient(monitorCfg(), WithLogsIntakeURL(srv.URL))
	_, err := client.Send(context.Background(), model.Event{
		ID:   "ev1",
		Type: model.EventTypeMonitorLog,
		Tags: []string{"env:test", "team:core"},
		MonitorLog: &model.MonitorLogPayload{
			Message: "hello",
		},
	})
	require.NoError(t, err)

	require.Len(t, captured, 1)
	assert.Equal(t, "hello", captured[0].Message)
	assert.Equal(t, "synthetic-events", captured[0].Source)
	assert.Equal(t, "synthetic-events-host", captured[0].Hostname)
	assert.Equal(t, "synthetic-events", captured[0].Service)
	assert.Equal(t, "env:test,team:core", captured[0].Tags)
}

func TestMonitorLogsClientExplicitTagsWin(t *testing.T) {
	wire := buildLogWirePayload(model.Event{
		Type: model.EventTypeMonitorLog,
		Tags: []string{"env:test"},
		MonitorLog: &model.MonitorLogPayload{
			Message: "hello",
			LogTags: "custom:tags",
			Source:  "my-source",
		},
	})
	assert.Equal(t, "custom:tags", wire.Tags)
	assert.Equal(t, "my-source", wire.Source)
}

func TestMonitorLogsClientRejectsEmptyMessage(t *testing.T) {
	client := NewMonitorLogsClient(monitorCfg())
	_, err := client.Send(context.Background(), model.Event{
		ID:         "ev1",
		Type:       model.EventTypeMonitorLog,
		MonitorLog: &model.MonitorLogPayload{Message: "   "},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is required")
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-123")}, nil
}

func emailCfg() config.EmailConfig {
	return config.EmailConfig{
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
		Region:          "us-west-2",
		FromEmail:       "sender@example.com",
	}
}

func TestEmailClientSend(t *testing.T) {
	ses := &fakeSES{}
	client := NewEmailClient(emailCfg(), "dest@example.com", WithSESAPI(ses))

	msg, err := client.Send(context.Background(), model.Event{
		ID:   "ev1",
		Type: model.EventTypeEmail,
		Email: &model.EmailPayload{
			Subject: "Alert",
			Body:    "Something broke",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "msg-123")

	require.NotNil(t, ses.input)
	assert.Equal(t, "sender@example.com", aws.ToString(ses.input.FromEmailAddress))
	assert.Equal(t, []string{"dest@example.com"}, ses.input.Destination.ToAddresses)
	assert.Equal(t, "Alert", aws.ToString(ses.input.Content.Simple.Subject.Data))
	assert.Equal(t, "Something broke", aws.ToString(ses.input.Content.Simple.Body.Text.Data))
}

type apiError struct {
	code, message string
}

func (e *apiError) Error() string        { return e.code + ": " + e.message }
func (e *apiError) ErrorCode() string    { return e.code }
func (e *apiError) ErrorMessage() string { return e.message }
func (e *apiError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultClient
}

func TestEmailClientMapsProviderErrors(t *testing.T) {
	ses := &fakeSES{err: &apiError{code: "MessageRejected", message: "nope"}}
	client := NewEmailClient(emailCfg(), "dest@example.com", WithSESAPI(ses))

	_, err := client.Send(context.Background(), model.Event{
		ID:    "ev1",
		Type:  model.EventTypeEmail,
		Email: &model.EmailPayload{Subject: "s", Body: "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SES-verified")

	ses.err = errors.New("dial tcp: timeout")
	_, err = client.Send(context.Background(), model.Event{
		ID:    "ev1",
		Type:  model.EventTypeEmail,
		Email: &model.EmailPayload{Subject: "s", Body: "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestEmailClientValidate(t *testing.T) {
	client := NewEmailClient(emailCfg(), "not-an-address", WithSESAPI(&fakeSES{}))

	result := client.Validate(model.Event{
		Type:  model.EventTypeEmail,
		Email: &model.EmailPayload{Subject: "s", Body: "b"},
	})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "recipient address is not a valid email address")

	result = client.Validate(model.Event{Type: model.EventTypeEmail})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "email payload is required")
}

func TestRegistryResolvesAllKnownTypes(t *testing.T) {
	registry := NewRegistry(config.Settings{
		Monitor: monitorCfg(),
		Email:   emailCfg(),
	})

	for _, eventType := range []model.EventType{
		model.EventTypeMonitorEvent,
		model.EventTypeMonitorLog,
		model.EventTypeEmail,
	} {
		client, err := registry.Resolve(eventType)
		require.NoError(t, err)
		assert.NotNil(t, client)
	}

	_, err := registry.Resolve(model.EventType("carrier-pigeon"))
	require.Error(t, err)
}
