// Package events carries typed notifications from the indexing core to
// independent consumers. Subscribers run in their own supervised goroutines;
// a slow or panicking consumer never blocks or crashes the core.
package events

import (
	"log"
	"sync"
	"time"
)

// Event is implemented by all event payloads
type Event interface {
	EventName() string
}

// DocumentAdded fires after a document is stored (including dedup hits)
type DocumentAdded struct {
	TenantID   int64
	DocumentID int64
	Filename   string
	Duplicate  bool
	At         time.Time
}

// DocumentDeleted fires after a document and its embeddings are removed
type DocumentDeleted struct {
	TenantID   int64
	DocumentID int64
	At         time.Time
}

// EmbeddingsCreated fires after a document's embedding batch commits
type EmbeddingsCreated struct {
	TenantID   int64
	DocumentID int64
	Count      int
	At         time.Time
}

// IndexBuilt fires after a rebuilt index is activated
type IndexBuilt struct {
	TenantID     int64
	IndexID      int64
	Name         string
	Version      int
	TotalVectors int
	At           time.Time
}

func (DocumentAdded) EventName() string     { return "document_added" }
func (DocumentDeleted) EventName() string   { return "document_deleted" }
func (EmbeddingsCreated) EventName() string { return "embeddings_created" }
func (IndexBuilt) EventName() string        { return "index_built" }

// Handler consumes events; it runs on the subscriber's own goroutine
type Handler func(Event)

// Bus fans events out to subscribers over bounded per-subscriber queues
type Bus struct {
	mu     sync.Mutex
	subs   []*subscriber
	closed bool
	wg     sync.WaitGroup
}

type subscriber struct {
	name  string
	queue chan Event
}

const subscriberQueueSize = 64

// NewBus creates an event bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a named handler. Each handler runs in its own
// goroutine; a panic in the handler is logged and the subscriber keeps
// receiving subsequent events.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	sub := &subscriber{
		name:  name,
		queue: make(chan Event, subscriberQueueSize),
	}
	b.subs = append(b.subs, sub)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for ev := range sub.queue {
			deliver(sub.name, handler, ev)
		}
	}()
}

func deliver(name string, handler Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event subscriber %q panicked on %s: %v", name, ev.EventName(), r)
		}
	}()
	handler(ev)
}

// Publish delivers an event to every subscriber without blocking the
// caller. When a subscriber's queue is full the event is dropped for that
// subscriber; indexing never waits on consumers.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.queue <- ev:
		default:
			log.Printf("event subscriber %q queue full, dropping %s", sub.name, ev.EventName())
		}
	}
}

// Close stops delivery and waits for queued events to drain
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.queue)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
