package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/decision"
)

func newQueryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Manage decision queries",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "redloop.yaml", "path to Redloop config file")

	cmd.AddCommand(newQueryCreateCmd(&configPath))
	cmd.AddCommand(newQueryAnswerCmd(&configPath))
	cmd.AddCommand(newQueryDismissCmd(&configPath))
	cmd.AddCommand(newQueryListCmd(&configPath))
	cmd.AddCommand(newQueryStatsCmd(&configPath))
	return cmd
}

// queryGate loads config and wires a decision gate for one command.
func queryGate(configPath string) (*decision.Gate, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gdb, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return decision.NewGate(gdb, nil), cfg, nil
}

func newQueryCreateCmd(configPath *string) *cobra.Command {
	var (
		cycleID  string
		qtype    string
		title    string
		question string
		urgency  string
		priority string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Raise a new query (BLOCKING queries pause their cycle)",
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, cfg, err := queryGate(*configPath)
			if err != nil {
				return err
			}

			q, err := gate.Create(decision.CreateOpts{
				ProjectID: cfg.Project,
				CycleID:   cycleID,
				Type:      qtype,
				Title:     title,
				Question:  question,
				Urgency:   strings.ToUpper(urgency),
				Priority:  strings.ToUpper(priority),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created query %s (%s, %s)\n", q.ID, q.Urgency, q.Priority)
			return nil
		},
	}

	cmd.Flags().StringVar(&cycleID, "cycle", "", "cycle to attach the query to")
	cmd.Flags().StringVar(&qtype, "type", "", "query type")
	cmd.Flags().StringVarP(&title, "title", "t", "", "query title (required)")
	cmd.Flags().StringVarP(&question, "question", "q", "", "the question needing a decision")
	cmd.Flags().StringVar(&urgency, "urgency", "ADVISORY", "BLOCKING or ADVISORY")
	cmd.Flags().StringVar(&priority, "priority", "", "LOW, MEDIUM, or HIGH")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newQueryAnswerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <query-id> <answer...>",
		Short: "Answer a pending query (resumes a blocked cycle)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, _, err := queryGate(*configPath)
			if err != nil {
				return err
			}

			result, err := gate.Answer(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Answered query %s\n", result.Query.ID)
			if !result.ShouldContinue {
				fmt.Fprintf(out, "  Suggested action: %s\n", result.AlternativeAction)
			}
			return nil
		},
	}
}

func newQueryDismissCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <query-id>",
		Short: "Dismiss a pending advisory query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, _, err := queryGate(*configPath)
			if err != nil {
				return err
			}

			q, err := gate.Dismiss(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed query %s\n", q.ID)
			return nil
		},
	}
}

func newQueryListCmd(configPath *string) *cobra.Command {
	var cycleID, status, urgency string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, cfg, err := queryGate(*configPath)
			if err != nil {
				return err
			}

			queries, err := gate.List(decision.ListFilters{
				ProjectID: cfg.Project,
				CycleID:   cycleID,
				Status:    strings.ToUpper(status),
				Urgency:   strings.ToUpper(urgency),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(queries) == 0 {
				fmt.Fprintln(out, "No queries found")
				return nil
			}
			for _, q := range queries {
				cycle := "-"
				if q.CycleID != nil {
					cycle = *q.CycleID
				}
				fmt.Fprintf(out, "%s  %-9s  %-8s  %-9s  %s  %s\n", q.ID, q.Status, q.Urgency, cycle, q.Priority, q.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cycleID, "cycle", "", "filter by cycle")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&urgency, "urgency", "", "filter by urgency")
	return cmd
}

func newQueryStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show decision statistics for the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, cfg, err := queryGate(*configPath)
			if err != nil {
				return err
			}

			stats, err := gate.ProjectStats(cfg.Project)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queries for %s: %d total\n", cfg.Project, stats.Total)
			for status, count := range stats.ByStatus {
				fmt.Fprintf(out, "  %-9s %d\n", status, count)
			}
			for urgency, count := range stats.ByUrgency {
				fmt.Fprintf(out, "  %-9s %d\n", urgency, count)
			}
			fmt.Fprintf(out, "  Mean time to answer: %.1f minutes\n", stats.AvgAnswerMinutes)
			return nil
		},
	}
}
