// Package bus implements the in-process event bus that decouples email
// ingestion, deletion, and client connection tracking from the
// subscribers that react to them (the WebSocket hub, the webhook
// dispatcher). Producers never know who, if anyone, is listening.
package bus

import (
	"log/slog"
	"sync"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

// EventKind discriminates the tagged union a Bus carries.
type EventKind int

const (
	Connected EventKind = iota
	EmailArrived
	EmailDeleted
)

// Event is the tagged union published on the bus. Only the field matching
// Kind is populated.
type Event struct {
	Kind    EventKind
	Address string
	Email   *models.Email
	EmailID string
}

// subscriberBuffer is how many events a subscriber can fall behind before
// the bus starts dropping events for it rather than blocking publishers.
const subscriberBuffer = 64

// subscriber is one registered consumer: its buffered channel and the
// address it filters on.
type subscriber struct {
	ch      chan Event
	address string // "" means unfiltered, receives every event
}

// Bus is a multi-producer, multi-consumer fan-out of Events. Delivery is
// best-effort: a subscriber slow enough to fill its buffer misses events
// rather than stall Publish for everyone else.
type Bus struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[int]*subscriber),
	}
}

// Subscribe registers a listener scoped to address: the bus itself filters
// so the subscriber only ever sees events for that address, matching the
// WebSocket facade's one-subscription-per-connection model. It returns a
// channel of events and an Unsubscribe func.
func (b *Bus) Subscribe(address string) (<-chan Event, func()) {
	return b.subscribe(address)
}

// SubscribeAll registers a listener that receives every event regardless
// of address, for consumers like the webhook dispatcher that fan out to
// many mailboxes from one subscription.
func (b *Bus) SubscribeAll() (<-chan Event, func()) {
	return b.subscribe("")
}

func (b *Bus) subscribe(address string) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	sub := &subscriber{ch: make(chan Event, subscriberBuffer), address: address}
	b.subs[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing.ch)
		}
	}
	return sub.ch, unsubscribe
}

// Publish fans event out to every subscriber whose address filter matches
// (or has none) without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subs {
		if sub.address != "" && sub.address != event.Address {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("subscriber buffer full, dropping event", "subscriber", id, "kind", event.Kind)
		}
	}
}

// PublishConnected announces a new client session for address, used by
// the WebSocket hub to tell webhook/IMAP-adjacent listeners a live
// watcher exists (not required for delivery, purely observational).
func (b *Bus) PublishConnected(address string) {
	b.Publish(Event{Kind: Connected, Address: address})
}

// PublishEmailArrived announces a newly stored email.
func (b *Bus) PublishEmailArrived(email *models.Email) {
	b.Publish(Event{Kind: EmailArrived, Address: email.To, Email: email})
}

// PublishEmailDeleted announces a removed email. id and address are
// carried independently of any Email value since the row is already gone
// by the time this fires.
func (b *Bus) PublishEmailDeleted(id, address string) {
	b.Publish(Event{Kind: EmailDeleted, Address: address, EmailID: id})
}
