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

const (
	defaultLogSource   = "synthetic-events"
	defaultLogHostname = "synthetic-events-host"
	defaultLogService  = "synthetic-events"
)

// MonitorLogsClient posts log lines to the provider's v2 log intake.
type MonitorLogsClient struct {
	cfg        config.MonitorConfig
	intakeURL  string
	httpClient *http.Client
}

// MonitorLogsOption configures a MonitorLogsClient.
type MonitorLogsOption func(*MonitorLogsClient)

// WithLogsIntakeURL overrides the derived intake URL. Used in tests.
func WithLogsIntakeURL(url string) MonitorLogsOption {
	return func(c *MonitorLogsClient) { c.intakeURL = url }
}

// WithLogsHTTPClient overrides the underlying HTTP client.
func WithLogsHTTPClient(client *http.Client) MonitorLogsOption {
	return func(c *MonitorLogsClient) { c.httpClient = client }
}

// NewMonitorLogsClient creates a client for the configured site.
func NewMonitorLogsClient(cfg config.MonitorConfig, opts ...MonitorLogsOption) *MonitorLogsClient {
	c := &MonitorLogsClient{
		cfg:        cfg,
		intakeURL:  intakeURLForSite(cfg.Site),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// intakeURLForSite derives the log intake endpoint from the API site,
// stripping any scheme and the leading "api." host segment.
func intakeURLForSite(site string) string {
	site = strings.TrimPrefix(site, "https://")
	site = strings.TrimPrefix(site, "http://")
	site = strings.TrimPrefix(site, "api.")
	return "https://http-intake.logs." + site + "/api/v2/logs"
}

// monitorLogWire is one intake API log entry.
type monitorLogWire struct {
	Message  string `json:"message"`
	Source   string `json:"ddsource"`
	Service  string `json:"service"`
	Hostname string `json:"hostname"`
	Tags     string `json:"ddtags"`
}

// buildWirePayload normalizes the log variant into an intake entry.
func buildLogWirePayload(ev model.Event) monitorLogWire {
	payload := ev.MonitorLog
	if payload == nil {
		payload = &model.MonitorLogPayload{}
	}

	source := payload.Source
	if source == "" {
		source = defaultLogSource
	}
	hostname := payload.Hostname
	if hostname == "" {
		hostname = defaultLogHostname
	}
	service := payload.Service
	if service == "" {
		service = defaultLogService
	}
	tags := payload.LogTags
	if tags == "" {
		tags = strings.Join(ev.Tags, ",")
	}

	return monitorLogWire{
		Message:  payload.Message,
		Source:   source,
		Service:  service,
		Hostname: hostname,
		Tags:     tags,
	}
}

// Send posts the log line to the intake endpoint.
func (c *MonitorLogsClient) Send(ctx context.Context, ev model.Event) (string, error) {
	if result := c.Validate(ev); !result.Valid {
		return "", fmt.Errorf("log validation failed: %s", strings.Join(result.Errors, ", "))
	}

	body, err := json.Marshal([]monitorLogWire{buildLogWirePayload(ev)})
	if err != nil {
		return "", fmt.Errorf("failed to encode log payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.intakeURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("failed to send log: %d %s", resp.StatusCode, string(detail))
	}

	return "Log sent to intake endpoint", nil
}

// Validate checks the monitor-log variant against intake requirements.
func (c *MonitorLogsClient) Validate(ev model.Event) ValidationResult {
	var errs []string

	if ev.MonitorLog == nil || strings.TrimSpace(ev.MonitorLog.Message) == "" {
		errs = append(errs, "message is required")
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

// TestConnection sends a marker log line to verify credentials and reach.
func (c *MonitorLogsClient) TestConnection(ctx context.Context) ConnectionResult {
	ev := model.Event{
		ID:   "test",
		Type: model.EventTypeMonitorLog,
		Tags: []string{"test:true", "source:synthetic-events"},
		MonitorLog: &model.MonitorLogPayload{
			Message: "Connectivity probe from synthevents",
		},
	}

	if _, err := c.Send(ctx, ev); err != nil {
		return ConnectionResult{Success: false, Error: err.Error()}
	}
	return ConnectionResult{Success: true, Message: "Successfully connected to the log intake API"}
}
