package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/synthevents/internal/config"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
)

const defaultSourceTypeName = "synthetic-events"

// MonitorEventsClient posts events to the monitoring provider's v1 events
// REST API.
type MonitorEventsClient struct {
	cfg        config.MonitorConfig
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// MonitorEventsOption configures a MonitorEventsClient.
type MonitorEventsOption func(*MonitorEventsClient)

// WithEventsBaseURL overrides the derived API base URL. Used in tests.
func WithEventsBaseURL(url string) MonitorEventsOption {
	return func(c *MonitorEventsClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithEventsHTTPClient overrides the underlying HTTP client.
func WithEventsHTTPClient(client *http.Client) MonitorEventsOption {
	return func(c *MonitorEventsClient) { c.httpClient = client }
}

// NewMonitorEventsClient creates a client for the configured site.
func NewMonitorEventsClient(cfg config.MonitorConfig, opts ...MonitorEventsOption) *MonitorEventsClient {
	c := &MonitorEventsClient{
		cfg:        cfg,
		baseURL:    "https://" + cfg.Site,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// monitorEventWire is the v1 events API request body.
type monitorEventWire struct {
	Title          string   `json:"title"`
	Text           string   `json:"text"`
	Tags           []string `json:"tags"`
	AlertType      string   `json:"alert_type"`
	Priority       string   `json:"priority"`
	SourceTypeName string   `json:"source_type_name"`
	DateHappened   int64    `json:"date_happened"`
	Host           string   `json:"host,omitempty"`
	DeviceName     string   `json:"device_name,omitempty"`
	AggregationKey string   `json:"aggregation_key,omitempty"`
	RelatedEventID int64    `json:"related_event_id,omitempty"`
}

// buildWirePayload normalizes an event variant into the API request body,
// applying the documented defaults for absent optional fields.
func (c *MonitorEventsClient) buildWirePayload(ev model.Event) monitorEventWire {
	payload := ev.MonitorEvent
	if payload == nil {
		payload = &model.MonitorEventPayload{}
	}

	title := strings.TrimSpace(payload.Title)
	text := strings.TrimSpace(payload.Text)
	if title == "" {
		title = "Synthetic Event"
	}
	if text == "" {
		text = title
	}

	alertType := payload.AlertType
	if alertType == "" {
		alertType = "info"
	}

	// The API wants a string priority; numeric priorities 1-3 map to
	// normal, everything else to low.
	priority := payload.Priority
	if priority == 0 {
		priority = 5
	}
	priorityStr := "low"
	if priority <= 3 {
		priorityStr = "normal"
	}

	sourceTypeName := payload.SourceTypeName
	if sourceTypeName == "" {
		sourceTypeName = defaultSourceTypeName
	}

	dateHappened := payload.DateHappened
	if dateHappened == 0 {
		dateHappened = c.now().Unix()
	}

	tags := make([]string, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		if strings.TrimSpace(tag) != "" {
			tags = append(tags, tag)
		}
	}

	return monitorEventWire{
		Title:          title,
		Text:           text,
		Tags:           tags,
		AlertType:      alertType,
		Priority:       priorityStr,
		SourceTypeName: sourceTypeName,
		DateHappened:   dateHappened,
		Host:           strings.TrimSpace(payload.Host),
		DeviceName:     strings.TrimSpace(payload.DeviceName),
		AggregationKey: strings.TrimSpace(payload.AggregationKey),
		RelatedEventID: payload.RelatedEventID,
	}
}

// Send posts the event to the events API.
func (c *MonitorEventsClient) Send(ctx context.Context, ev model.Event) (string, error) {
	if result := c.Validate(ev); !result.Valid {
		return "", fmt.Errorf("event validation failed: %s", strings.Join(result.Errors, ", "))
	}

	body, err := json.Marshal(c.buildWirePayload(ev))
	if err != nil {
		return "", fmt.Errorf("failed to encode event payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", c.cfg.APIKey)
	req.Header.Set("DD-APPLICATION-KEY", c.cfg.AppKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("failed to send event: %d%s %s", resp.StatusCode, statusGuidance(resp.StatusCode), string(detail))
	}

	return "Event sent to monitoring API", nil
}

// statusGuidance attaches remediation hints for the common auth and
// payload failures.
func statusGuidance(status int) string {
	switch status {
	case http.StatusForbidden:
		return " - Forbidden. Check your API/Application keys and permissions; the application key may need the events_write scope."
	case http.StatusUnauthorized:
		return " - Unauthorized. Check your API key is valid and not expired."
	case http.StatusBadRequest:
		return " - Bad Request. Check the event payload format."
	}
	return ""
}

// Validate checks the monitor-event variant against channel requirements.
func (c *MonitorEventsClient) Validate(ev model.Event) ValidationResult {
	var errs []string

	payload := ev.MonitorEvent
	if payload == nil {
		errs = append(errs, "monitor-event payload is required")
	} else if strings.TrimSpace(payload.Title) == "" && strings.TrimSpace(payload.Text) == "" {
		errs = append(errs, "either title or text must be provided")
	}

	for _, tag := range ev.Tags {
		if strings.TrimSpace(tag) == "" {
			errs = append(errs, "all tags must be non-empty strings")
			break
		}
	}
	if ev.Delay < 0 {
		errs = append(errs, "delay must be non-negative")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// TestConnection sends a marker event to verify credentials and reach.
func (c *MonitorEventsClient) TestConnection(ctx context.Context) ConnectionResult {
	ev := model.Event{
		ID:   "test",
		Type: model.EventTypeMonitorEvent,
		Tags: []string{"source:synthetic-events", "test:true"},
		MonitorEvent: &model.MonitorEventPayload{
			Title:     "Test Connection Event",
			Text:      "Connectivity probe from synthevents",
			AlertType: "info",
			Priority:  5,
		},
	}

	if _, err := c.Send(ctx, ev); err != nil {
		return ConnectionResult{Success: false, Error: err.Error()}
	}
	return ConnectionResult{Success: true, Message: "Successfully connected to the monitoring events API"}
}
