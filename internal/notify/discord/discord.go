// Package discord implements the notify.Notifier for Discord via the REST API.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/mwhitfield/redloop/internal/notify"
)

// severityColors maps notification severities to embed colors.
var severityColors = map[string]int{
	notify.SeverityInfo:    0x439fe0,
	notify.SeverityWarning: 0xffcc00,
	notify.SeverityError:   0xff0000,
	notify.SeveritySuccess: 0x36a64f,
}

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts notifications to a Discord channel. Outbound-only: no
// gateway connection is opened.
type Notifier struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	BotToken  string // Discord bot token
	ChannelID string // channel to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	sess := opts.Session
	if sess == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("discord: bot token is required")
		}
		s, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		sess = s
	}
	return &Notifier{sess: sess, channelID: opts.ChannelID}, nil
}

// Notify posts the notification as an embed with a severity color.
func (n *Notifier) Notify(ctx context.Context, msg notify.Notification) error {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       severityColors[msg.Severity],
	}
	if msg.CycleID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Cycle", Value: msg.CycleID, Inline: true,
		})
	}
	if msg.QueryID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Query", Value: msg.QueryID, Inline: true,
		})
	}

	if _, err := n.sess.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: post %q: %w", msg.Title, err)
	}
	return nil
}
