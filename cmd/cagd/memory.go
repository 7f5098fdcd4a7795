package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
)

// memoryCmd groups the conversation-memory operator commands
func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and manage conversation memory",
	}

	cmd.AddCommand(
		memoryShowCmd(),
		memorySearchCmd(),
		memoryResetCmd(),
	)

	return cmd
}

// memoryShowCmd prints both memory tiers of a conversation
func memoryShowCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show a conversation's short- and long-term memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conversationID := args[0]

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			memory, err := e.memory.GetMemory(ctx, conversationID, userID)
			if err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("memory not found: %s", conversationID)
				}
				return fmt.Errorf("failed to load memory: %w", err)
			}
			return printJSON(memory)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id recorded on new memory documents")

	return cmd
}

// memorySearchCmd scores memory items against a query
func memorySearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <conversation-id> <query>",
		Short: "Search a conversation's memory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			results, err := e.memory.SearchMemory(ctx, args[0], args[1])
			if err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("memory not found: %s", args[0])
				}
				return fmt.Errorf("failed to search memory: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("No matching memories.")
				return nil
			}

			fmt.Printf("%-8s %-28s %s\n", "Score", "ID", "User Message")
			fmt.Println(strings.Repeat("-", 80))
			for _, result := range results {
				message := result.Item.UserMessage
				if len(message) > 40 {
					message = message[:40] + "..."
				}
				fmt.Printf("%-8.2f %-28s %s\n", result.Score, result.Item.ID, message)
			}

			return nil
		},
	}
}

// memoryResetCmd clears every conversation memory after a backup
func memoryResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset all conversation memory",
		Long: `Delete every conversation's short- and long-term memory.

A timestamped backup of all memory files is written under
memory/backups/ before anything is removed; the reset aborts if the
backup fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.memory.ResetMemory(ctx); err != nil {
				return fmt.Errorf("failed to reset memory: %w", err)
			}

			fmt.Println("Conversation memory reset. A backup was written under memory/backups/.")
			return nil
		},
	}
}
