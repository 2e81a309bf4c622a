package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/db"
)

func newInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Redloop workspace",
		Long: `Creates the .redloop working directory, appends Redloop entries to
.gitignore, and migrates the database schema. Idempotent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "redloop.yaml", "path to Redloop config file")
	return cmd
}

func runInit(cmd *cobra.Command, configPath string) error {
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
	if err := snaps.Initialize(); err != nil {
		return err
	}

	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized Redloop workspace for project %s\n", cfg.Project)
	fmt.Fprintf(out, "  Snapshot root: %s\n", snaps.Root())
	fmt.Fprintln(out, "  Database schema is up to date")
	return nil
}
