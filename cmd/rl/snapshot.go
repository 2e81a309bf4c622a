package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/models"
	"github.com/mwhitfield/redloop/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage workspace snapshots",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "redloop.yaml", "path to Redloop config file")

	cmd.AddCommand(newSnapshotCreateCmd(&configPath))
	cmd.AddCommand(newSnapshotRestoreCmd(&configPath))
	cmd.AddCommand(newSnapshotDiffCmd(&configPath))
	cmd.AddCommand(newSnapshotConflictsCmd(&configPath))
	cmd.AddCommand(newSnapshotCleanupCmd(&configPath))
	return cmd
}

// snapshotStore loads config and wires a snapshot store for one command.
func snapshotStore(configPath string) (*snapshot.Store, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gdb, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	snaps, err := newSnapshotStore(cfg, gdb)
	if err != nil {
		return nil, nil, err
	}
	return snaps, cfg, nil
}

func newSnapshotCreateCmd(configPath *string) *cobra.Command {
	var branch, phase string

	cmd := &cobra.Command{
		Use:   "create <cycle-id>",
		Short: "Capture the cycle's relevant files into a new snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, _, err := snapshotStore(*configPath)
			if err != nil {
				return err
			}
			if err := snaps.Initialize(); err != nil {
				return err
			}

			if phase == "" {
				phase = models.PhaseRed
			}
			snap, err := snaps.CreateSnapshot(args[0], branch, phase)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%d files)\n", snap.SnapshotID, len(snap.Files))
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "branch name to record")
	cmd.Flags().StringVar(&phase, "phase", "", "phase to record (default RED)")
	return cmd
}

func newSnapshotRestoreCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot-id>",
		Short: "Write a snapshot's files back to the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, _, err := snapshotStore(*configPath)
			if err != nil {
				return err
			}
			if err := snaps.RestoreSnapshot(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
			return nil
		},
	}
}

func newSnapshotDiffCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <cycle-id> <previous-snapshot-id>",
		Short: "Diff the cycle's current files against a previous snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, _, err := snapshotStore(*configPath)
			if err != nil {
				return err
			}

			changes, err := snaps.AnalyzeChanges(args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(changes) == 0 {
				fmt.Fprintln(out, "No changes")
				return nil
			}
			for _, ch := range changes {
				fmt.Fprintf(out, "%-6s %s\n", ch.Type, ch.Path)
			}
			return nil
		},
	}
}

func newSnapshotConflictsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts <cycle-id-a> <cycle-id-b>",
		Short: "List paths touched by both cycles' latest snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, _, err := snapshotStore(*configPath)
			if err != nil {
				return err
			}

			paths, err := snaps.DetectConflicts(args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintln(out, "No overlapping paths")
				return nil
			}
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}

func newSnapshotCleanupCmd(configPath *string) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete snapshots older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, cfg, err := snapshotStore(*configPath)
			if err != nil {
				return err
			}

			if days == 0 {
				days = cfg.Snapshots.RetentionDays
			}
			removed, err := snaps.CleanupOldSnapshots(days)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshots older than %d days\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default: config value)")
	return cmd
}
