package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sendReply bool

var sendCmd = &cobra.Command{
	Use:   "send <user-id> <message>",
	Short: "Tag a message and advance the conversation",
	Long: `Send an inbound message through the tagging pipeline: the message is
classified, scoring signals move the readiness score and trust level, the
stage is re-derived and the spend total grows by the message's cost.

Examples:
  convoflow send alice "how should we shard the orders table?"
  convoflow send alice "thanks, that worked" --reply`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().BoolVar(&sendReply, "reply", false, "also generate a reply after tagging")
}

func runSend(cmd *cobra.Command, args []string) error {
	userID := args[0]
	message := strings.Join(args[1:], " ")
	ctx := context.Background()

	tagger, responder, err := getServices(ctx, true)
	if err != nil {
		return err
	}

	result, err := tagger.TagMessage(ctx, userID, message)
	if err != nil {
		return fmt.Errorf("tag message: %w", err)
	}

	fmt.Printf("Conversation %s\n", result.ConversationID)
	fmt.Printf("  Score: %d (%s)\n", result.Score, result.Stage)
	fmt.Printf("  Trust: %d\n", result.TrustLevel)
	if len(result.Tags) > 0 {
		fmt.Printf("  Tags: %s\n", strings.Join(result.Tags, ", "))
	}
	if len(result.Signals) > 0 {
		fmt.Printf("  Signals: %s\n", strings.Join(result.Signals, ", "))
	}
	fmt.Printf("  Cost: $%.4f\n", result.Cost)
	if result.Degraded {
		fmt.Println("  Note: no backend could classify this message; stored as UNCLASSIFIED")
	}
	if result.OverBudget {
		fmt.Println("  Warning: conversation is over budget")
	}

	if !sendReply {
		return nil
	}

	reply, err := responder.GenerateResponse(ctx, userID, message, "", "")
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	fmt.Printf("\n%s\n", reply.Response)
	return nil
}
