package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/cycle"
	"github.com/mwhitfield/redloop/internal/db"
	"github.com/mwhitfield/redloop/internal/events"
	"github.com/mwhitfield/redloop/internal/gitops"
	"github.com/mwhitfield/redloop/internal/snapshot"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rl",
		Short: "Redloop — TDD cycle orchestration",
		Long:  "Redloop drives feature work through RED/GREEN/REFACTOR/REVIEW cycles with query gating and workspace snapshots.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newCycleCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newSnapshotCmd())
	cmd.AddCommand(newDashboardCmd())
	cmd.AddCommand(newMaintainCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// openDB connects to the configured database backend.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DB.Driver == "mysql" {
		return db.Connect(cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
	}

	path := cfg.DB.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return db.ConnectSQLite(path)
}

// newSnapshotStore builds the snapshot store for the configured project.
func newSnapshotStore(cfg *config.Config, gdb *gorm.DB) (*snapshot.Store, error) {
	return snapshot.New(gdb, cfg.Root, snapshot.Options{
		TestDirs:   cfg.Snapshots.TestDirs,
		SourceDirs: cfg.Snapshots.SourceDirs,
		CacheSize:  cfg.Snapshots.CacheSize,
	})
}

// newOrchestrator wires the orchestrator with its collaborators.
func newOrchestrator(cfg *config.Config, gdb *gorm.DB, bus *events.Bus) (*cycle.Orchestrator, error) {
	snaps, err := newSnapshotStore(cfg, gdb)
	if err != nil {
		return nil, err
	}
	return cycle.New(cycle.Opts{
		DB:        gdb,
		Branches:  gitops.New(cfg.Root),
		Snapshots: snaps,
		Bus:       bus,
	})
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
