package channel

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/alexisbeaulieu97/synthevents/internal/config"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
)

var emailAddressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// sesAPI is the slice of the SES v2 client the email channel uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailClient delivers email events through Amazon SES.
type EmailClient struct {
	cfg config.EmailConfig
	to  string
	ses sesAPI
}

// EmailOption configures an EmailClient.
type EmailOption func(*EmailClient)

// WithSESAPI overrides the SES client. Used in tests.
func WithSESAPI(api sesAPI) EmailOption {
	return func(c *EmailClient) { c.ses = api }
}

// NewEmailClient creates a client using static credentials from settings.
// Recipient address comes from the monitor settings block.
func NewEmailClient(cfg config.EmailConfig, recipient string, opts ...EmailOption) *EmailClient {
	c := &EmailClient{cfg: cfg, to: recipient}
	for _, o := range opts {
		o(c)
	}
	if c.ses == nil {
		c.ses = sesv2.New(sesv2.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		})
	}
	return c
}

// Send delivers the email variant and returns the provider message ID.
func (c *EmailClient) Send(ctx context.Context, ev model.Event) (string, error) {
	if result := c.Validate(ev); !result.Valid {
		return "", fmt.Errorf("email validation failed: %s", strings.Join(result.Errors, ", "))
	}

	payload := ev.Email
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.cfg.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{c.to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{
					Data:    aws.String(payload.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &sestypes.Body{
					Text: &sestypes.Content{
						Data:    aws.String(payload.Body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	out, err := c.ses.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %s", describeSESError(err))
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	return fmt.Sprintf("Email sent with message ID %s", messageID), nil
}

// describeSESError maps provider error codes to actionable messages.
func describeSESError(err error) string {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.ErrorCode() {
	case "MessageRejected":
		return "message rejected, verify sender and recipient addresses are SES-verified"
	case "MailFromDomainNotVerifiedException":
		return "sending domain is not verified in SES"
	case "AccountSuspendedException":
		return "SES account is suspended"
	case "Throttling", "TooManyRequestsException":
		return "SES rate limit exceeded, retry later"
	case "AccessDenied", "AccessDeniedException", "UnrecognizedClientException", "InvalidClientTokenId", "SignatureDoesNotMatch":
		return "authentication failed, check the AWS access key and secret"
	default:
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
}

// Validate checks the email variant and configured addresses.
func (c *EmailClient) Validate(ev model.Event) ValidationResult {
	var errs []string

	if ev.Email == nil {
		errs = append(errs, "email payload is required")
	} else {
		if strings.TrimSpace(ev.Email.Subject) == "" {
			errs = append(errs, "subject is required")
		}
		if strings.TrimSpace(ev.Email.Body) == "" {
			errs = append(errs, "body is required")
		}
	}
	if c.cfg.FromEmail != "" && !emailAddressPattern.MatchString(c.cfg.FromEmail) {
		errs = append(errs, "sender address is not a valid email address")
	}
	if c.to != "" && !emailAddressPattern.MatchString(c.to) {
		errs = append(errs, "recipient address is not a valid email address")
	}
	if ev.Delay < 0 {
		errs = append(errs, "delay must be non-negative")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// TestConnection sends a probe email to the configured recipient.
func (c *EmailClient) TestConnection(ctx context.Context) ConnectionResult {
	ev := model.Event{
		ID:   "test",
		Type: model.EventTypeEmail,
		Email: &model.EmailPayload{
			Subject: "Synthevents connectivity probe",
			Body:    "This message confirms the email channel is configured correctly.",
			Format:  model.EmailFormatPlainText,
		},
	}

	if _, err := c.Send(ctx, ev); err != nil {
		return ConnectionResult{Success: false, Error: err.Error()}
	}
	return ConnectionResult{Success: true, Message: "Successfully sent a test email through SES"}
}
