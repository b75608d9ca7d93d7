package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/synthevents/internal/model"
)

type runOptions struct {
	pollInterval time.Duration
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run <scenario-id> [scenario-id...]",
		Short: "Execute scenarios from the terminal and follow their progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, flags, opts, args)
		},
	}

	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 2*time.Second, "How often to report progress")

	return cmd
}

func runScenarios(cmd *cobra.Command, flags *rootFlags, opts runOptions, ids []string) error {
	app, err := newAppContext(flags)
	if err != nil {
		return err
	}
	defer app.Close()

	scenarios := make([]model.Scenario, 0, len(ids))
	for _, id := range ids {
		scenario, err := app.scenarios.Get(id)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, *scenario)
	}

	executionID := uuid.NewString()
	fmt.Fprintf(cmd.OutOrStdout(), "Execution run ID: %s\n", executionID)

	done := make(chan error, 1)
	go func() {
		done <- app.executor.Execute(context.Background(), executionID, scenarios)
	}()

	ticker := time.NewTicker(opts.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			printProgress(cmd, app, executionID)
			return err
		case <-ticker.C:
			printProgress(cmd, app, executionID)
		}
	}
}

func printProgress(cmd *cobra.Command, app *appContext, executionID string) {
	view, err := app.resolver.Resolve(executionID)
	if err != nil {
		return
	}
	for _, scenario := range view.Scenarios {
		completed := 0
		for _, ev := range scenario.Events {
			if ev.Status.Terminal() {
				completed++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s (%d/%d events)\n", scenario.ScenarioName, scenario.Status, completed, len(scenario.Events))
	}
}
