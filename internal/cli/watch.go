package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/convoflow-go/internal/client"
	"github.com/raphaelgruber/convoflow-go/internal/feed"
	"github.com/spf13/cobra"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live conversation events",
	Long: `Connect to a running server's event feed and print conversation events
as they happen. The server must be started with CONVOFLOW_FEED_ADDR set.

Examples:
  convoflow watch
  convoflow watch --url ws://localhost:8486/events`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "feed endpoint (default from CONVOFLOW_FEED_URL)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Println("Watching for events. Press Ctrl+C to stop.")

	err := client.New(watchURL).Watch(ctx, func(ev feed.Event) error {
		fmt.Printf("%s  %s  %s", ev.At.Format("15:04:05"), ev.ConversationID, ev.Type)
		if len(ev.Metadata) > 0 {
			fmt.Printf("  %v", ev.Metadata)
		}
		fmt.Println()
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
