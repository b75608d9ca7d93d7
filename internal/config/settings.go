package config

import (
	"os"
	"strings"
)

// MonitorConfig holds credentials for the monitoring-events and log-intake
// APIs, plus the address monitoring-bound emails are delivered to.
type MonitorConfig struct {
	APIKey       string `json:"apiKey"`
	AppKey       string `json:"appKey"`
	Site         string `json:"site"`
	EmailAddress string `json:"emailAddress"`
}

// EmailConfig holds the SES credentials used by the email channel.
type EmailConfig struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region"`
	FromEmail       string `json:"fromEmail"`
}

// LoggingConfig holds the runtime-adjustable log level.
type LoggingConfig struct {
	Level string `json:"logLevel"`
}

// Settings is the runtime-editable channel configuration persisted in
// settings.json and edited through the API.
type Settings struct {
	Monitor MonitorConfig `json:"monitor"`
	Email   EmailConfig   `json:"email"`
	Logging LoggingConfig `json:"logging"`
}

// DefaultSettings builds Settings from environment variables, matching the
// deploy-time bootstrap path.
func DefaultSettings() Settings {
	return Settings{
		Monitor: MonitorConfig{
			APIKey:       os.Getenv("MONITOR_API_KEY"),
			AppKey:       os.Getenv("MONITOR_APP_KEY"),
			Site:         envOr("MONITOR_SITE", "api.datadoghq.com"),
			EmailAddress: os.Getenv("MONITOR_EMAIL_ADDRESS"),
		},
		Email: EmailConfig{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Region:          envOr("SES_REGION", "us-west-2"),
			FromEmail:       os.Getenv("SES_FROM_EMAIL"),
		},
		Logging: LoggingConfig{
			Level: envOr("LOG_LEVEL", "info"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Merge overlays non-empty fields of other onto s and returns the result.
// Used for partial updates arriving through the API.
func (s Settings) Merge(other Settings) Settings {
	out := s
	mergeString(&out.Monitor.APIKey, other.Monitor.APIKey)
	mergeString(&out.Monitor.AppKey, other.Monitor.AppKey)
	mergeString(&out.Monitor.Site, other.Monitor.Site)
	mergeString(&out.Monitor.EmailAddress, other.Monitor.EmailAddress)
	mergeString(&out.Email.AccessKeyID, other.Email.AccessKeyID)
	mergeString(&out.Email.SecretAccessKey, other.Email.SecretAccessKey)
	mergeString(&out.Email.Region, other.Email.Region)
	mergeString(&out.Email.FromEmail, other.Email.FromEmail)
	mergeString(&out.Logging.Level, other.Logging.Level)
	return out
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// Masked returns a copy with secrets reduced to identification hints so
// the settings view never leaks full credentials.
func (s Settings) Masked() Settings {
	out := s
	out.Monitor.APIKey = maskSecret(s.Monitor.APIKey, 8, 6)
	out.Monitor.AppKey = maskSecret(s.Monitor.AppKey, 8, 6)
	out.Email.AccessKeyID = maskSecret(s.Email.AccessKeyID, 8, 6)
	out.Email.SecretAccessKey = maskSecret(s.Email.SecretAccessKey, 6, 4)
	return out
}

func maskSecret(value string, head, tail int) string {
	if value == "" {
		return ""
	}
	if len(value) <= head+tail {
		return strings.Repeat("*", len(value))
	}
	return value[:head] + "..." + value[len(value)-tail:]
}

// MissingCredentials reports which credentials are absent for the given
// channel requirements. Used as a preflight before starting an execution.
func (s Settings) MissingCredentials(needsMonitor, needsEmail bool) []string {
	var missing []string
	if needsMonitor {
		if strings.TrimSpace(s.Monitor.APIKey) == "" {
			missing = append(missing, "Monitor API Key")
		}
		if strings.TrimSpace(s.Monitor.AppKey) == "" {
			missing = append(missing, "Monitor Application Key")
		}
	}
	if needsEmail {
		if strings.TrimSpace(s.Email.AccessKeyID) == "" {
			missing = append(missing, "AWS Access Key ID")
		}
		if strings.TrimSpace(s.Email.SecretAccessKey) == "" {
			missing = append(missing, "AWS Secret Access Key")
		}
		if strings.TrimSpace(s.Email.FromEmail) == "" {
			missing = append(missing, "SES From Email")
		}
		if strings.TrimSpace(s.Monitor.EmailAddress) == "" {
			missing = append(missing, "Monitor Email Address")
		}
	}
	return missing
}
