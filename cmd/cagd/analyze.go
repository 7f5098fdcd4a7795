package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// analyzeCmd runs the message pipeline once and prints the context map
func analyzeCmd() *cobra.Command {
	var conversationID string
	var userID string
	var respond string

	cmd := &cobra.Command{
		Use:   "analyze [message]",
		Short: "Analyze a message and print the resulting context map",
		Long: `Run one message through the full analysis pipeline and print the
resulting context map as JSON.

The message is taken from the argument, or from stdin when no argument
is given. With --conversation the context is persisted and enriched
against that conversation's memory; without it the analysis is
stateless and nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			message := ""
			if len(args) == 1 {
				message = args[0]
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read message from stdin: %w", err)
				}
				message = string(data)
			}
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("no message provided")
			}

			e, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			contextMap, err := e.contexts.ProcessMessage(ctx, conversationID, userID, message)
			if err != nil {
				return fmt.Errorf("failed to analyze message: %w", err)
			}

			if respond != "" {
				if conversationID == "" {
					return fmt.Errorf("--respond requires --conversation")
				}
				contextMap, err = e.contexts.ProcessResponse(ctx, conversationID, userID, message, respond)
				if err != nil {
					return fmt.Errorf("failed to process response: %w", err)
				}
			}

			return printJSON(contextMap)
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation to analyze against; empty runs statelessly")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id for authorization and memory attribution")
	cmd.Flags().StringVar(&respond, "respond", "", "Also record this assistant response, completing the turn")

	return cmd
}
