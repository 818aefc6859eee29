package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/convoflow-go/internal/models"
	"github.com/spf13/cobra"
)

var eventsLimit int

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List all conversations",
	Long: `List all conversations, most recently active first.

Examples:
  convoflow conversations
  convoflow conversations -v`,
	RunE: runConversations,
}

var showCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a user's conversation state",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var eventsCmd = &cobra.Command{
	Use:   "events <user-id>",
	Short: "Show a conversation's event history",
	Long: `Show the append-only event history of a user's conversation, oldest first.

Examples:
  convoflow events alice
  convoflow events alice --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 0, "show only the most recent N events")
}

func runConversations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	convs, err := dbClient.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if len(convs) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	fmt.Printf("Conversations (%d):\n\n", len(convs))
	for _, conv := range convs {
		budgetMark := ""
		if conv.OverBudget {
			budgetMark = " [over budget]"
		}
		fmt.Printf("- %s  score %d (%s), trust %d%s\n",
			conv.UserID, conv.CurrentScore, conv.Stage, conv.TrustLevel, budgetMark)
		if verbose {
			fmt.Printf("  Messages: %d, cost: $%.4f, last active: %s\n",
				conv.MessageCount, conv.ConversationCost,
				conv.LastInteractionAt.Format("2006-01-02 15:04:05"))
			if len(conv.LastTags) > 0 {
				fmt.Printf("  Tags: %s\n", strings.Join(conv.LastTags, ", "))
			}
		}
	}

	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	userID := args[0]
	ctx := context.Background()

	conv, err := dbClient.FindConversationByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find conversation: %w", err)
	}
	if conv == nil {
		fmt.Printf("No conversation found for user %q.\n", userID)
		return nil
	}

	fmt.Printf("Conversation %s\n", models.MustRecordIDString(conv.ID))
	fmt.Printf("  User:             %s\n", conv.UserID)
	fmt.Printf("  Stage:            %s\n", conv.Stage)
	fmt.Printf("  Score:            %d (cumulative %d)\n", conv.CurrentScore, conv.CumulativeScore)
	fmt.Printf("  Trust:            %d\n", conv.TrustLevel)
	fmt.Printf("  Messages:         %d\n", conv.MessageCount)
	fmt.Printf("  Cost:             $%.4f\n", conv.ConversationCost)
	fmt.Printf("  Over budget:      %v\n", conv.OverBudget)
	if len(conv.LastTags) > 0 {
		fmt.Printf("  Tags:             %s\n", strings.Join(conv.LastTags, ", "))
	}
	fmt.Printf("  Last interaction: %s\n", conv.LastInteractionAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Created:          %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05"))

	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	userID := args[0]
	ctx := context.Background()

	conv, err := dbClient.FindConversationByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find conversation: %w", err)
	}
	if conv == nil {
		fmt.Printf("No conversation found for user %q.\n", userID)
		return nil
	}

	events, err := dbClient.ListEventsByConversation(ctx, models.MustRecordIDString(conv.ID))
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	if eventsLimit > 0 && len(events) > eventsLimit {
		events = events[len(events)-eventsLimit:]
	}

	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	fmt.Printf("Events (%d):\n\n", len(events))
	for _, ev := range events {
		fmt.Printf("%s  %s%s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Type, formatEventDetail(ev))
	}

	return nil
}

// formatEventDetail renders the interesting part of an event's metadata.
func formatEventDetail(ev models.ConversationEvent) string {
	if len(ev.Metadata) == 0 {
		return ""
	}
	switch ev.Type {
	case models.EventMessageReceived, models.EventAssistantResponse:
		if content, ok := ev.Metadata["content"].(string); ok {
			return "  " + truncateLine(content, 60)
		}
	case models.EventStageChanged:
		from, _ := ev.Metadata["from"].(string)
		to, _ := ev.Metadata["to"].(string)
		return fmt.Sprintf("  %s -> %s", from, to)
	case models.EventSignalsDetected:
		return fmt.Sprintf("  %v", ev.Metadata["signals"])
	}
	return ""
}

func truncateLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
