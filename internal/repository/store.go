// Package repository is the storage engine: the sole boundary between the
// rest of the system and persisted state. Every other package talks to a
// Store, never to *gorm.DB directly.
package repository

import "gorm.io/gorm"

// Store aggregates the email, mailbox, webhook, and user repositories
// into the one dependency SMTP, IMAP, the HTTP facade, the webhook
// dispatcher, and the retention task are built against.
type Store interface {
	EmailRepository
	MailboxRepository
	WebhookRepository
	UserRepository
}

type store struct {
	EmailRepository
	MailboxRepository
	WebhookRepository
	UserRepository
}

// NewStore builds a Store backed by db. db's dialect (sqlite or postgres)
// determines which full text search strategy SearchFullText uses.
func NewStore(db *gorm.DB) Store {
	return &store{
		EmailRepository:   NewEmailRepository(db),
		MailboxRepository: NewMailboxRepository(db),
		WebhookRepository: NewWebhookRepository(db),
		UserRepository:    NewUserRepository(db),
	}
}
