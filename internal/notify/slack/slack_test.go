package slack

import (
	"context"
	"fmt"
	"testing"

	slackapi "github.com/slack-go/slack"

	"github.com/mwhitfield/redloop/internal/notify"
)

// mockSlackClient records PostMessageContext calls.
type mockSlackClient struct {
	channels []string
	calls    int
	err      error
}

func (m *mockSlackClient) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.calls++
	m.channels = append(m.channels, channelID)
	return channelID, "123.456", m.err
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{BotToken: "xoxb-test"}); err == nil {
		t.Error("expected error for missing channel")
	}
	if _, err := New(Opts{ChannelID: "C123"}); err == nil {
		t.Error("expected error for missing token and client")
	}
	if _, err := New(Opts{ChannelID: "C123", Client: &mockSlackClient{}}); err != nil {
		t.Errorf("New with injected client: %v", err)
	}
}

func TestNotify_PostsToChannel(t *testing.T) {
	mock := &mockSlackClient{}
	n, err := New(Opts{ChannelID: "C123", Client: mock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = n.Notify(context.Background(), notify.Notification{
		Title:    "Cycle completed",
		Body:     "cycle cyc-00001 finished",
		Severity: notify.SeveritySuccess,
		CycleID:  "cyc-00001",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if mock.calls != 1 {
		t.Errorf("calls = %d, want 1", mock.calls)
	}
	if mock.channels[0] != "C123" {
		t.Errorf("channel = %q, want C123", mock.channels[0])
	}
}

func TestNotify_PropagatesAPIError(t *testing.T) {
	mock := &mockSlackClient{err: fmt.Errorf("channel_not_found")}
	n, err := New(Opts{ChannelID: "C123", Client: mock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := n.Notify(context.Background(), notify.Notification{Title: "t"}); err == nil {
		t.Error("expected API error to propagate")
	}
}

func TestSeverityColors_CoverAllSeverities(t *testing.T) {
	for _, sev := range []string{
		notify.SeverityInfo, notify.SeverityWarning, notify.SeverityError, notify.SeveritySuccess,
	} {
		if severityColors[sev] == "" {
			t.Errorf("no color mapped for severity %q", sev)
		}
	}
}
