package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/decision"
	"github.com/mwhitfield/redloop/internal/maintain"
)

func newMaintainCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run maintenance sweeps (query expiry, snapshot retention)",
		Long: `Expires stale advisory queries and deletes snapshots past their
retention window. By default runs as a daemon on the configured cron
schedules; --once runs both sweeps immediately and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gdb, err := openDB(cfg)
			if err != nil {
				return err
			}
			snaps, err := newSnapshotStore(cfg, gdb)
			if err != nil {
				return err
			}

			daemon := maintain.New(decision.NewGate(gdb, nil), snaps,
				cfg.Maintenance, cfg.Snapshots.RetentionDays)

			if once {
				result, err := daemon.RunOnce()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Expired %d advisory queries\n", result.QueriesExpired)
				fmt.Fprintf(out, "Removed %d old snapshots\n", result.SnapshotsRemoved)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Maintenance daemon running")
			return daemon.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "redloop.yaml", "path to Redloop config file")
	cmd.Flags().BoolVar(&once, "once", false, "run both sweeps immediately and exit")
	return cmd
}
