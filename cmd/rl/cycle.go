package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/cycle"
)

func newCycleCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Manage TDD cycles",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "redloop.yaml", "path to Redloop config file")

	cmd.AddCommand(newCycleStartCmd(&configPath))
	cmd.AddCommand(newCycleRunCmd(&configPath))
	cmd.AddCommand(newCycleLifecycleCmd(&configPath, "pause", "Pause a cycle"))
	cmd.AddCommand(newCycleLifecycleCmd(&configPath, "resume", "Resume a paused cycle on its branch"))
	cmd.AddCommand(newCycleLifecycleCmd(&configPath, "recover", "Recover a failed cycle back to active"))
	cmd.AddCommand(newCycleStatusCmd(&configPath))
	cmd.AddCommand(newCycleListCmd(&configPath))
	return cmd
}

// cycleOrchestrator loads config and wires an orchestrator for one command.
func cycleOrchestrator(configPath string) (*cycle.Orchestrator, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gdb, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	orch, err := newOrchestrator(cfg, gdb, nil)
	if err != nil {
		return nil, nil, err
	}
	return orch, cfg, nil
}

func newCycleStartCmd(configPath *string) *cobra.Command {
	var (
		title       string
		description string
		criteria    []string
		constraints []string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new cycle at phase RED",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cfg, err := cycleOrchestrator(*configPath)
			if err != nil {
				return err
			}

			c, err := orch.StartCycle(cycle.FeatureRequest{
				ProjectID:          cfg.Project,
				Title:              title,
				Description:        description,
				AcceptanceCriteria: criteria,
				Constraints:        constraints,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Started cycle %s (%s)\n", c.ID, c.Title)
			fmt.Fprintf(out, "  Phase:  %s\n", c.Phase)
			fmt.Fprintf(out, "  Branch: %s\n", c.CurrentBranch)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "feature title (required)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "feature description")
	cmd.Flags().StringArrayVar(&criteria, "criterion", nil, "acceptance criterion (repeatable, at least one required)")
	cmd.Flags().StringArrayVar(&constraints, "constraint", nil, "constraint (repeatable)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newCycleRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <cycle-id>",
		Short: "Execute the cycle's current phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, _, err := cycleOrchestrator(*configPath)
			if err != nil {
				return err
			}

			result, err := orch.ExecutePhase(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			if result.Outcome == cycle.OutcomeOK && !result.Complete {
				fmt.Fprintf(out, "  Next phase: %s\n", result.Phase)
			}
			return nil
		},
	}
}

func newCycleLifecycleCmd(configPath *string, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <cycle-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, _, err := cycleOrchestrator(*configPath)
			if err != nil {
				return err
			}

			switch verb {
			case "pause":
				err = orch.PauseCycle(args[0])
			case "resume":
				err = orch.ResumeCycle(args[0])
			case "recover":
				err = orch.RecoverCycle(args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cycle %s: %s complete\n", args[0], verb)
			return nil
		},
	}
}

func newCycleStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <cycle-id>",
		Short: "Show a cycle's phase, status, and counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, _, err := cycleOrchestrator(*configPath)
			if err != nil {
				return err
			}

			s, err := orch.Status(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s — %s\n", s.Cycle.ID, s.Cycle.Title)
			fmt.Fprintf(out, "  Phase:           %s\n", s.Cycle.Phase)
			fmt.Fprintf(out, "  Status:          %s\n", s.Cycle.Status)
			fmt.Fprintf(out, "  Branch:          %s\n", s.Cycle.CurrentBranch)
			fmt.Fprintf(out, "  Tests:           %d (%d passing, %d failing)\n", s.TestsCount, s.PassingTests, s.FailingTests)
			fmt.Fprintf(out, "  Artifacts:       %d\n", s.ArtifactsCount)
			fmt.Fprintf(out, "  Pending queries: %d\n", s.PendingQueries)
			return nil
		},
	}
}

func newCycleListCmd(configPath *string) *cobra.Command {
	var status, phase string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cfg, err := cycleOrchestrator(*configPath)
			if err != nil {
				return err
			}

			cycles, err := orch.List(cycle.ListFilters{
				ProjectID: cfg.Project,
				Status:    status,
				Phase:     phase,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(cycles) == 0 {
				fmt.Fprintln(out, "No cycles found")
				return nil
			}
			for _, c := range cycles {
				fmt.Fprintf(out, "%s  %-8s  %-9s  %s\n", c.ID, c.Phase, c.Status, c.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&phase, "phase", "", "filter by phase")
	return cmd
}
