package models

import "time"

// WebhookEvent is a kind of mailbox event a Webhook can subscribe to.
type WebhookEvent string

const (
	EventArrival  WebhookEvent = "arrival"
	EventDeletion WebhookEvent = "deletion"
	EventRead     WebhookEvent = "read"
	EventTest     WebhookEvent = "test"
)

// Webhook is a per-mailbox HTTP subscription. Events is stored as a JSON
// array; it must be non-empty on create.
type Webhook struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	MailboxAddress string    `gorm:"size:320;index" json:"mailbox_address"`
	WebhookURL     string    `gorm:"size:2048" json:"webhook_url"`
	Events         []string  `gorm:"serializer:json;column:events_json" json:"events"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Webhook.
func (Webhook) TableName() string {
	return "webhooks"
}

// HasEvent reports whether the webhook is subscribed to the given event
// kind.
func (w Webhook) HasEvent(event WebhookEvent) bool {
	for _, e := range w.Events {
		if e == string(event) {
			return true
		}
	}
	return false
}
