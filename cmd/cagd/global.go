package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// globalCmd groups the cross-conversation knowledge-base commands
func globalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "global",
		Short: "Inspect and manage the global memory",
	}

	cmd.AddCommand(
		globalShowCmd(),
		globalStatsCmd(),
		globalFeedbackCmd(),
		globalMaintainCmd(),
		globalResetCmd(),
	)

	return cmd
}

// globalShowCmd prints the full global memory document
func globalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the global memory document",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			doc, err := e.global.GetGlobalMemoryContext(ctx)
			if err != nil {
				return fmt.Errorf("failed to load global memory: %w", err)
			}

			// Embedding vectors are hundreds of floats per entity; drop
			// them from the printed copy.
			display := doc.Clone()
			for _, entity := range display.Entities {
				entity.Embedding = nil
			}
			return printJSON(display)
		},
	}
}

// globalStatsCmd prints aggregate counters and the usage log summary
func globalStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show global memory statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			stats, err := e.global.GetGlobalMemoryStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to load global memory stats: %w", err)
			}
			usage, err := e.usage.Summary(ctx)
			if err != nil {
				return fmt.Errorf("failed to load usage summary: %w", err)
			}
			return printJSON(map[string]any{
				"memory": stats,
				"usage":  usage,
			})
		},
	}
}

// globalFeedbackCmd applies a user correction to a stored entity
func globalFeedbackCmd() *cobra.Command {
	var (
		entityType  string
		incorrect   bool
		description string
		confidence  float64
		comment     string
	)

	cmd := &cobra.Command{
		Use:   "feedback <entity-name>",
		Short: "Record feedback about a global memory entity",
		Long: `Record whether an entity's stored description is correct.

Confirming feedback raises the entity's confidence; marking it
incorrect lowers confidence and optionally replaces the description.
Every feedback event is appended to the feedback log with before and
after snapshots.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			entityName := args[0]

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			feedback := &models.EntityFeedback{
				IsCorrect:            !incorrect,
				CorrectedDescription: description,
				UserComment:          comment,
			}
			if cmd.Flags().Changed("confidence") {
				feedback.CorrectedConfidence = &confidence
			}

			if err := e.global.ProvideFeedback(ctx, entityName, entityType, feedback); err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("entity not found: %s", entityName)
				}
				return fmt.Errorf("failed to apply feedback: %w", err)
			}

			fmt.Printf("Feedback recorded for entity: %s\n", entityName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&entityType, "type", "t", "", "Entity type (person, organization, location, concept)")
	cmd.Flags().BoolVar(&incorrect, "incorrect", false, "Mark the stored description as incorrect")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Corrected description")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Corrected confidence (0.0-1.0)")
	cmd.Flags().StringVar(&comment, "comment", "", "Free-form comment stored with the feedback")

	return cmd
}

// globalMaintainCmd runs one maintenance cycle and reports the result
func globalMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run global memory maintenance once",
		Long: `Apply confidence decay, drop entities below the occurrence floor,
enforce the entity and topic caps, and write a rotating backup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.global.PerformMaintenance(ctx); err != nil {
				return fmt.Errorf("failed to run maintenance: %w", err)
			}

			stats, err := e.global.GetGlobalMemoryStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to load global memory stats: %w", err)
			}

			fmt.Println("Maintenance complete.")
			return printJSON(stats)
		},
	}
}

// globalResetCmd clears the knowledge base after a backup
func globalResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the global memory",
		Long: `Replace the global memory with an empty document.

A timestamped backup of the current document is written under
global_memory/backups/ before the reset; the reset aborts if the
backup fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.global.ResetGlobalMemory(ctx); err != nil {
				return fmt.Errorf("failed to reset global memory: %w", err)
			}

			fmt.Println("Global memory reset. A backup was written under global_memory/backups/.")
			return nil
		},
	}
}
