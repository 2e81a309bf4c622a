package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/db"
)

func newDBCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database operations",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "redloop.yaml", "path to Redloop config file")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all Redloop tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gdb, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gdb); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration complete")
			return nil
		},
	}
	cmd.AddCommand(migrate)
	return cmd
}
