// Package notify bridges Redloop events to chat platforms (Slack, Discord).
// Delivery is best-effort: a failed notification is logged, never surfaced
// to the code that raised the event.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/mwhitfield/redloop/internal/events"
	"github.com/mwhitfield/redloop/internal/models"
)

// Notification severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
	SeveritySuccess = "success"
)

// Notification is one human-targeted notice.
type Notification struct {
	Title    string
	Body     string
	Severity string
	CycleID  string
	QueryID  string
}

// Notifier delivers notifications to a single platform.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher fans event-derived notifications out to all configured
// notifiers.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a Dispatcher over the given notifiers.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Watch subscribes to the bus and forwards notification-worthy events until
// the context is cancelled or the bus closes the subscription.
func (d *Dispatcher) Watch(ctx context.Context, bus *events.Bus) {
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			n, wanted := FromEvent(ev)
			if !wanted {
				continue
			}
			d.send(ctx, n)
		}
	}
}

// send delivers a notification to every notifier, logging failures.
func (d *Dispatcher) send(ctx context.Context, n Notification) {
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			log.Printf("notify: %v", err)
		}
	}
}

// FromEvent translates an event into a notification. Only events that
// warrant human attention produce one: blocking queries, completions, and
// failures.
func FromEvent(ev events.Event) (Notification, bool) {
	switch ev.Type {
	case events.QueryCreated:
		if ev.Urgency != models.UrgencyBlocking {
			return Notification{}, false
		}
		return Notification{
			Title:    "Blocking query raised",
			Body:     fmt.Sprintf("%s (cycle %s is paused until answered)", ev.Message, ev.CycleID),
			Severity: SeverityWarning,
			CycleID:  ev.CycleID,
			QueryID:  ev.QueryID,
		}, true
	case events.CycleCompleted:
		return Notification{
			Title:    "Cycle completed",
			Body:     fmt.Sprintf("cycle %s: %s", ev.CycleID, ev.Message),
			Severity: SeveritySuccess,
			CycleID:  ev.CycleID,
		}, true
	case events.CycleFailed:
		return Notification{
			Title:    "Cycle failed",
			Body:     fmt.Sprintf("cycle %s failed during %s", ev.CycleID, ev.Phase),
			Severity: SeverityError,
			CycleID:  ev.CycleID,
		}, true
	default:
		return Notification{}, false
	}
}
