// Package webhook implements the per-mailbox HTTP delivery subscriber:
// it listens on the event bus and fans EmailArrived/EmailDeleted out to
// every enabled webhook whose events set matches, with bounded retries
// that never block ingestion.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/bus"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

const (
	maxAttempts    = 3
	backoffBase    = 1 * time.Second
	backoffCap     = 4 * time.Second
	attemptTimeout = 10 * time.Second
)

// payload is the JSON body every webhook delivery POSTs, per the wire
// format the dashboard and test scripts both rely on.
type payload struct {
	Event     string        `json:"event"`
	Mailbox   string        `json:"mailbox"`
	WebhookID string        `json:"webhook_id"`
	Timestamp time.Time     `json:"timestamp"`
	Email     *emailSummary `json:"email,omitempty"`
}

type emailSummary struct {
	ID          string    `json:"id"`
	To          string    `json:"to"`
	From        string    `json:"from"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	Attachments int       `json:"attachments"`
}

// lister is the slice of Store the dispatcher actually needs, kept
// narrow so tests can fake it without implementing the full repository
// interface.
type lister interface {
	ListActiveForEvent(ctx context.Context, address string, event models.WebhookEvent) ([]models.Webhook, error)
}

// Dispatcher subscribes to every bus event and delivers it to the
// webhooks registered for its address, independent of any other
// subscriber (the WebSocket hub in particular).
type Dispatcher struct {
	store  lister
	client *http.Client
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. It does not start listening until
// Run is called.
func NewDispatcher(store repository.Store, logger *slog.Logger) *Dispatcher {
	return newDispatcher(store, logger)
}

func newDispatcher(store lister, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		client: &http.Client{Timeout: attemptTimeout},
		logger: logger,
	}
}

// Run subscribes to b and delivers events until ctx is canceled. It is
// meant to be started as its own goroutine from cmd/server.
func (d *Dispatcher) Run(ctx context.Context, b *bus.Bus) {
	events, unsubscribe := b.SubscribeAll()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			d.handle(ctx, event)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event bus.Event) {
	kind, body := d.eventKind(event)
	if kind == "" {
		return
	}

	webhooks, err := d.store.ListActiveForEvent(ctx, event.Address, kind)
	if err != nil {
		d.logger.Error("failed to list webhooks for event", "address", event.Address, "error", err)
		return
	}
	for _, wh := range webhooks {
		wh := wh
		go d.deliverWithRetry(wh, payload{
			Event:     string(kind),
			Mailbox:   event.Address,
			WebhookID: wh.ID,
			Timestamp: time.Now().UTC(),
			Email:     body,
		})
	}
}

// eventKind maps a bus event to the webhook event it corresponds to, and
// builds the email summary carried on arrival deliveries. EmailDeleted
// carries no email body per the wire format.
func (d *Dispatcher) eventKind(event bus.Event) (models.WebhookEvent, *emailSummary) {
	switch event.Kind {
	case bus.EmailArrived:
		return models.EventArrival, summarize(event.Email)
	case bus.EmailDeleted:
		return models.EventDeletion, nil
	default:
		return "", nil
	}
}

func summarize(email *models.Email) *emailSummary {
	if email == nil {
		return nil
	}
	return &emailSummary{
		ID:          email.ID,
		To:          email.To,
		From:        email.From,
		Subject:     email.Subject,
		Body:        email.Body,
		Timestamp:   email.Timestamp,
		Attachments: len(email.Attachments),
	}
}

// deliverWithRetry attempts delivery up to maxAttempts times with
// exponential backoff, logging and discarding on exhaustion. It never
// returns an error: ingestion must never observe webhook failures.
func (d *Dispatcher) deliverWithRetry(wh models.Webhook, p payload) {
	backoff := backoffBase
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
		err := d.post(ctx, wh.WebhookURL, p)
		cancel()
		if err == nil {
			return
		}

		d.logger.Warn("webhook delivery attempt failed",
			"webhook_id", wh.ID, "mailbox", wh.MailboxAddress, "attempt", attempt, "error", err)

		if attempt == maxAttempts {
			d.logger.Error("webhook delivery exhausted retries, discarding",
				"webhook_id", wh.ID, "mailbox", wh.MailboxAddress, "event", p.Event)
			return
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > backoffCap {
			backoff = backoffCap
		}
	}
}

// TestWebhook sends a synthetic event=test delivery with no retries and
// reports whether it succeeded.
func (d *Dispatcher) TestWebhook(ctx context.Context, wh *models.Webhook) bool {
	p := payload{
		Event:     string(models.EventTest),
		Mailbox:   wh.MailboxAddress,
		WebhookID: wh.ID,
		Timestamp: time.Now().UTC(),
	}
	return d.post(ctx, wh.WebhookURL, p) == nil
}

func (d *Dispatcher) post(ctx context.Context, url string, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
