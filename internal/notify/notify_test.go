package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mwhitfield/redloop/internal/events"
	"github.com/mwhitfield/redloop/internal/models"
)

func TestFromEvent(t *testing.T) {
	tests := []struct {
		name         string
		ev           events.Event
		wanted       bool
		wantSeverity string
	}{
		{
			name:         "blocking query",
			ev:           events.Event{Type: events.QueryCreated, Urgency: models.UrgencyBlocking, CycleID: "cyc-00001", QueryID: "qry-00001", Message: "pick a db"},
			wanted:       true,
			wantSeverity: SeverityWarning,
		},
		{
			name:   "advisory query is silent",
			ev:     events.Event{Type: events.QueryCreated, Urgency: models.UrgencyAdvisory},
			wanted: false,
		},
		{
			name:         "cycle completed",
			ev:           events.Event{Type: events.CycleCompleted, CycleID: "cyc-00001"},
			wanted:       true,
			wantSeverity: SeveritySuccess,
		},
		{
			name:         "cycle failed",
			ev:           events.Event{Type: events.CycleFailed, CycleID: "cyc-00001", Phase: models.PhaseGreen},
			wanted:       true,
			wantSeverity: SeverityError,
		},
		{
			name:   "phase progress is silent",
			ev:     events.Event{Type: events.CyclePhase},
			wanted: false,
		},
		{
			name:   "query answered is silent",
			ev:     events.Event{Type: events.QueryAnswered},
			wanted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, wanted := FromEvent(tt.ev)
			if wanted != tt.wanted {
				t.Fatalf("wanted = %v, want %v", wanted, tt.wanted)
			}
			if !wanted {
				return
			}
			if n.Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", n.Severity, tt.wantSeverity)
			}
			if n.CycleID != tt.ev.CycleID {
				t.Errorf("CycleID = %q, want %q", n.CycleID, tt.ev.CycleID)
			}
		})
	}
}

// recordingNotifier captures delivered notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	got   []Notification
	ready chan struct{}
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
	select {
	case r.ready <- struct{}{}:
	default:
	}
	return nil
}

func TestDispatcher_Watch(t *testing.T) {
	bus := events.NewBus()
	rec := &recordingNotifier{ready: make(chan struct{}, 1)}
	d := NewDispatcher(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Watch(ctx, bus)
		close(done)
	}()

	// Give the watcher time to subscribe before publishing.
	time.Sleep(10 * time.Millisecond)

	bus.Publish(events.Event{Type: events.CyclePhase})     // filtered out
	bus.Publish(events.Event{Type: events.CycleCompleted, CycleID: "cyc-00001", Message: "done"})

	select {
	case <-rec.ready:
	case <-time.After(time.Second):
		t.Fatal("notification never delivered")
	}

	rec.mu.Lock()
	got := append([]Notification(nil), rec.got...)
	rec.mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("delivered %d notifications, want 1", len(got))
	}
	if got[0].Severity != SeveritySuccess || got[0].CycleID != "cyc-00001" {
		t.Errorf("notification = %+v", got[0])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop on context cancel")
	}
}
