package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trigoo007/proyecto-cag-sub000/internal/application/services"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
)

// contextCmd groups the stored-context operator commands
func contextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Inspect and manage stored context maps",
	}

	cmd.AddCommand(
		contextShowCmd(),
		contextVersionsCmd(),
		contextSearchCmd(),
		contextStatsCmd(),
		contextMergeCmd(),
		contextDeleteCmd(),
	)

	return cmd
}

// contextShowCmd prints a conversation's context map
func contextShowCmd() *cobra.Command {
	var userID string
	var versionID string

	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show the context map for a conversation",
		Long:  `Print the stored context map as JSON, optionally a specific historical version.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conversationID := args[0]

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if versionID != "" {
				contextMap, err := e.contexts.GetContextVersion(ctx, conversationID, versionID)
				if err != nil {
					if domain.IsNotFound(err) {
						return fmt.Errorf("version not found: %s", versionID)
					}
					return fmt.Errorf("failed to load version: %w", err)
				}
				return printJSON(contextMap)
			}

			contextMap, err := e.contexts.GetContextMap(ctx, conversationID, userID)
			if err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("context not found: %s", conversationID)
				}
				return fmt.Errorf("failed to load context: %w", err)
			}
			return printJSON(contextMap)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id for authorization")
	cmd.Flags().StringVar(&versionID, "version", "", "Show this historical version instead of the current map")

	return cmd
}

// contextVersionsCmd lists the historical snapshots of a conversation
func contextVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <conversation-id>",
		Short: "List historical versions of a context map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			versions, err := e.contexts.GetContextVersions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list versions: %w", err)
			}

			if len(versions) == 0 {
				fmt.Println("No versions found.")
				return nil
			}

			fmt.Printf("%-28s %s\n", "Version", "Timestamp")
			fmt.Println(strings.Repeat("-", 50))
			for _, v := range versions {
				fmt.Printf("%-28s %s\n", v.VersionID, v.Timestamp.Format("2006-01-02 15:04:05"))
			}

			return nil
		},
	}
}

// contextSearchCmd searches entities, memory and documents in one pass
func contextSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <conversation-id> <query>",
		Short: "Search context entities, memory and documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			results, err := e.contexts.SearchContext(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to search context: %w", err)
			}
			return printJSON(results)
		},
	}
}

// contextStatsCmd prints manager and analyzer counters
func contextStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show context store and analyzer statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			contextStats, err := e.contexts.GetContextStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read context stats: %w", err)
			}
			analyzerStats, err := e.analyzer.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read analyzer stats: %w", err)
			}

			return printJSON(map[string]any{
				"contexts": contextStats,
				"analyzer": analyzerStats,
			})
		},
	}
}

// contextMergeCmd folds one conversation's context map into another
func contextMergeCmd() *cobra.Command {
	var userID string
	var strategy string

	cmd := &cobra.Command{
		Use:   "merge <target-conversation-id> <source-conversation-id>",
		Short: "Merge one conversation's context map into another",
		Long: `Load both context maps, merge the source into the target under the chosen
strategy (append, replace, keep or smart) and persist the result to the
target conversation. The source conversation is left untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			targetID, sourceID := args[0], args[1]

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			target, err := e.contexts.GetContextMap(ctx, targetID, userID)
			if err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("context not found: %s", targetID)
				}
				return fmt.Errorf("failed to load target context: %w", err)
			}
			source, err := e.contexts.GetContextMap(ctx, sourceID, userID)
			if err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("context not found: %s", sourceID)
				}
				return fmt.Errorf("failed to load source context: %w", err)
			}

			merged, err := services.MergeContexts(target, source, strategy)
			if err != nil {
				return fmt.Errorf("failed to merge contexts: %w", err)
			}

			if _, err := e.contexts.UpdateContextMap(ctx, targetID, userID, merged, services.UpdateContextOptions{}); err != nil {
				return fmt.Errorf("failed to save merged context: %w", err)
			}

			fmt.Printf("Merged context %s into %s (strategy: %s)\n", sourceID, targetID, strategy)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id for authorization")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", services.MergeSmart, "Merge strategy: append, replace, keep or smart")

	return cmd
}

// contextDeleteCmd removes a conversation's context and history
func contextDeleteCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation's context map and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conversationID := args[0]

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.contexts.DeleteContext(ctx, conversationID, userID); err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("context not found: %s", conversationID)
				}
				return fmt.Errorf("failed to delete context: %w", err)
			}

			fmt.Printf("Deleted context: %s\n", conversationID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id for authorization")

	return cmd
}
