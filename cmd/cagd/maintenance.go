package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// maintenanceCmd groups the scheduler-related commands
func maintenanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Run background maintenance jobs",
	}

	cmd.AddCommand(maintenanceRunCmd())

	return cmd
}

// maintenanceRunCmd runs every registered job once, in order
func maintenanceRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all maintenance jobs once",
		Long: `Run every maintenance job a single time, in registration order:
analysis cache cleanup, context cache sweep, memory maintenance,
global memory maintenance, and metrics pruning. Job failures are
logged and do not stop the remaining jobs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			registerMaintenanceJobs(e)

			jobs := e.maintenance.JobNames()
			fmt.Printf("Running %d maintenance jobs...\n", len(jobs))
			for _, name := range jobs {
				fmt.Printf("  - %s\n", name)
			}

			e.maintenance.RunAll(ctx)

			fmt.Println("Maintenance complete.")
			return nil
		},
	}
}
