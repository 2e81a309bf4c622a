package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/dashboard"
	"github.com/mwhitfield/redloop/internal/events"
	"github.com/mwhitfield/redloop/internal/notify"
	"github.com/mwhitfield/redloop/internal/notify/discord"
	"github.com/mwhitfield/redloop/internal/notify/slack"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only dashboard and event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gdb, err := openDB(cfg)
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.Dashboard.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bus := events.NewBus()

			// Chat escalations ride the same bus as the SSE stream.
			notifiers, err := buildNotifiers(cfg)
			if err != nil {
				return err
			}
			if len(notifiers) > 0 {
				go notify.NewDispatcher(notifiers...).Watch(ctx, bus)
			}

			return dashboard.Start(ctx, dashboard.StartOpts{
				DB:   gdb,
				Bus:  bus,
				Port: port,
				Out:  cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "redloop.yaml", "path to Redloop config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: config value)")
	return cmd
}

// buildNotifiers wires the chat adapters that have credentials configured.
func buildNotifiers(cfg *config.Config) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier

	if cfg.Notify.SlackToken != "" {
		n, err := slack.New(slack.Opts{
			BotToken:  cfg.Notify.SlackToken,
			ChannelID: cfg.Notify.SlackChannel,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	if cfg.Notify.DiscordToken != "" {
		n, err := discord.New(discord.Opts{
			BotToken:  cfg.Notify.DiscordToken,
			ChannelID: cfg.Notify.DiscordChannel,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	return notifiers, nil
}
