package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
)

// trackingTags builds the correlation tags injected into every outbound
// event so the receiving system can trace it back to its run.
func trackingTags(scenario model.Scenario, executionID, eventID string) []string {
	return []string{
		"scenario_id:" + scenario.ID,
		"scenario_name:" + scenario.SanitizedName(),
		"execution_run_id:" + executionID,
		"event_id:" + eventID,
		"source:synthetic-events",
	}
}

// decorate returns a copy of the event carrying the tracking tags. Email
// events additionally get the tracking metadata merged into the body and
// the scenario name appended to the subject.
func decorate(ev model.Event, scenario model.Scenario, executionID string) model.Event {
	out := ev.Clone()
	tags := trackingTags(scenario, executionID, ev.ID)
	out.Tags = append(out.Tags, tags...)

	if out.Type == model.EventTypeEmail && out.Email != nil {
		out.Email.Subject = fmt.Sprintf("%s [Scenario: %s]", out.Email.Subject, scenario.Name)
		out.Email.Body = decorateEmailBody(out.Email.Body, out.Email.Format, scenario, executionID, ev.ID, tags)
	}
	return out
}

// decorateEmailBody merges tracking metadata into the body. JSON-format
// bodies get the fields merged into the document; plain-text bodies and
// unparseable JSON get an appended hashtag block and tracking footer.
func decorateEmailBody(body string, format model.EmailFormat, scenario model.Scenario, executionID, eventID string, tags []string) string {
	footer := trackingFooter(scenario, executionID, eventID)

	if format == model.EmailFormatJSON {
		var doc map[string]any
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return "[JSON Parse Error - treating as plain text]\n\n" + body + "\n\n" + footer
		}

		existing, _ := doc["tags"].([]any)
		merged := make([]any, 0, len(existing)+len(tags))
		merged = append(merged, existing...)
		for _, tag := range tags {
			merged = append(merged, tag)
		}
		doc["tags"] = merged
		doc["scenario_name"] = scenario.Name
		doc["scenario_id"] = scenario.ID
		doc["execution_run_id"] = executionID
		doc["event_id"] = eventID

		enhanced, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "[JSON Parse Error - treating as plain text]\n\n" + body + "\n\n" + footer
		}
		return string(enhanced)
	}

	hashtags := make([]string, len(tags))
	for i, tag := range tags {
		hashtags[i] = "#" + tag
	}
	return body + "\n\n" + strings.Join(hashtags, " ") + "\n\n" + footer
}

func trackingFooter(scenario model.Scenario, executionID, eventID string) string {
	return fmt.Sprintf(
		"--- Execution Tracking ---\nScenario: %s\nScenario ID: %s\nExecution Run ID: %s\nEvent ID: %s",
		scenario.Name, scenario.ID, executionID, eventID,
	)
}
