// Package events provides an in-process, non-blocking event bus for cycle
// and query lifecycle notifications.
package events

import (
	"log"
	"sync"
	"time"
)

// Event types published by the orchestrator and decision gate.
const (
	CycleStarted   = "cycle.started"
	CyclePhase     = "cycle.phase"
	CyclePaused    = "cycle.paused"
	CycleResumed   = "cycle.resumed"
	CycleCompleted = "cycle.completed"
	CycleFailed    = "cycle.failed"
	QueryCreated   = "query.created"
	QueryAnswered  = "query.answered"
	QueryDismissed = "query.dismissed"
)

// Event is one lifecycle notification.
type Event struct {
	Type      string    `json:"type"`
	ProjectID string    `json:"project_id,omitempty"`
	CycleID   string    `json:"cycle_id,omitempty"`
	QueryID   string    `json:"query_id,omitempty"`
	Phase     string    `json:"phase,omitempty"`
	Urgency   string    `json:"urgency,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 64

// Bus fans events out to subscribers. Publish never blocks: events for a
// subscriber whose buffer is full are dropped with a logged warning.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function that closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers an event to every subscriber without blocking. A nil bus
// is a no-op so callers can leave eventing unwired.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("events: subscriber buffer full, dropping %s", ev.Type)
		}
	}
}
