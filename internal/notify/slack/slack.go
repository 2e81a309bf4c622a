// Package slack implements the notify.Notifier for Slack via the Web API.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/mwhitfield/redloop/internal/notify"
)

// severityColors maps notification severities to attachment sidebar colors.
var severityColors = map[string]string{
	notify.SeverityInfo:    "#439fe0",
	notify.SeverityWarning: "#ffcc00",
	notify.SeverityError:   "#ff0000",
	notify.SeveritySuccess: "#36a64f",
}

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts notifications to a Slack channel.
type Notifier struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // channel to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}
	client := opts.Client
	if client == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("slack: bot token is required")
		}
		client = slackapi.New(opts.BotToken)
	}
	return &Notifier{client: client, channelID: opts.ChannelID}, nil
}

// Notify posts the notification as an attachment with a severity color.
func (n *Notifier) Notify(ctx context.Context, msg notify.Notification) error {
	attachment := slackapi.Attachment{
		Color: severityColors[msg.Severity],
		Title: msg.Title,
		Text:  msg.Body,
	}
	if msg.CycleID != "" {
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: "Cycle", Value: msg.CycleID, Short: true,
		})
	}
	if msg.QueryID != "" {
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: "Query", Value: msg.QueryID, Short: true,
		})
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post %q: %w", msg.Title, err)
	}
	return nil
}
