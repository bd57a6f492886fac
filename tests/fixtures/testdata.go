package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

// EmailBuilder creates test Email instances with fluent API.
type EmailBuilder struct {
	email models.Email
}

// NewEmailBuilder creates a new EmailBuilder with sensible defaults.
func NewEmailBuilder() *EmailBuilder {
	return &EmailBuilder{
		email: models.Email{
			ID:        uuid.NewString(),
			To:        "user@example.com",
			From:      "sender@external.com",
			Subject:   "Test Subject",
			Body:      "This is a test email body.",
			Timestamp: time.Now(),
		},
	}
}

// WithID sets the email ID.
func (b *EmailBuilder) WithID(id string) *EmailBuilder {
	b.email.ID = id
	return b
}

// WithTo sets the recipient address.
func (b *EmailBuilder) WithTo(address string) *EmailBuilder {
	b.email.To = address
	return b
}

// WithFrom sets the sender address.
func (b *EmailBuilder) WithFrom(address string) *EmailBuilder {
	b.email.From = address
	return b
}

// WithSubject sets the email subject.
func (b *EmailBuilder) WithSubject(subject string) *EmailBuilder {
	b.email.Subject = subject
	return b
}

// WithBody sets the email body.
func (b *EmailBuilder) WithBody(body string) *EmailBuilder {
	b.email.Body = body
	return b
}

// WithRaw sets the raw RFC 822 source.
func (b *EmailBuilder) WithRaw(raw string) *EmailBuilder {
	b.email.Raw = raw
	return b
}

// WithTimestamp sets the arrival timestamp.
func (b *EmailBuilder) WithTimestamp(t time.Time) *EmailBuilder {
	b.email.Timestamp = t
	return b
}

// WithAttachments sets the email's inline attachments.
func (b *EmailBuilder) WithAttachments(attachments []models.Attachment) *EmailBuilder {
	b.email.Attachments = attachments
	return b
}

// Build returns the constructed Email.
func (b *EmailBuilder) Build() *models.Email {
	return &b.email
}

// BuildValue returns the constructed Email as a value (not pointer).
func (b *EmailBuilder) BuildValue() models.Email {
	return b.email
}

// WebhookBuilder creates test Webhook instances with fluent API.
type WebhookBuilder struct {
	webhook models.Webhook
}

// NewWebhookBuilder creates a new WebhookBuilder with sensible defaults.
func NewWebhookBuilder() *WebhookBuilder {
	now := time.Now()
	return &WebhookBuilder{
		webhook: models.Webhook{
			ID:             uuid.NewString(),
			MailboxAddress: "user@example.com",
			WebhookURL:     "https://example.com/hook",
			Events:         []string{string(models.EventArrival)},
			Enabled:        true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}

// WithID sets the webhook ID.
func (b *WebhookBuilder) WithID(id string) *WebhookBuilder {
	b.webhook.ID = id
	return b
}

// WithMailboxAddress sets the webhook's owning mailbox address.
func (b *WebhookBuilder) WithMailboxAddress(address string) *WebhookBuilder {
	b.webhook.MailboxAddress = address
	return b
}

// WithWebhookURL sets the delivery URL.
func (b *WebhookBuilder) WithWebhookURL(url string) *WebhookBuilder {
	b.webhook.WebhookURL = url
	return b
}

// WithEvents sets the subscribed events.
func (b *WebhookBuilder) WithEvents(events ...string) *WebhookBuilder {
	b.webhook.Events = events
	return b
}

// WithEnabled sets the enabled flag.
func (b *WebhookBuilder) WithEnabled(enabled bool) *WebhookBuilder {
	b.webhook.Enabled = enabled
	return b
}

// Build returns the constructed Webhook.
func (b *WebhookBuilder) Build() *models.Webhook {
	return &b.webhook
}

// BuildValue returns the constructed Webhook as a value (not pointer).
func (b *WebhookBuilder) BuildValue() models.Webhook {
	return b.webhook
}

// CreateEmails creates a slice of emails addressed to address with
// sequential subjects and descending timestamps (newest first).
func CreateEmails(address string, count int) []models.Email {
	emails := make([]models.Email, count)
	for i := 0; i < count; i++ {
		emails[i] = NewEmailBuilder().
			WithTo(address).
			WithSubject(generateSubject(i)).
			WithTimestamp(time.Now().Add(-time.Duration(i) * time.Hour)).
			BuildValue()
	}
	return emails
}

func generateSubject(index int) string {
	subjects := []string{
		"Welcome to our service",
		"Your order confirmation",
		"Important update",
		"Newsletter",
		"Account notification",
	}
	return subjects[index%len(subjects)]
}
