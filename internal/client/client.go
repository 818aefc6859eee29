// Package client provides a client for the convoflow event feed.
package client

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/convoflow-go/internal/feed"
)

// Client subscribes to a convoflow event feed.
type Client struct {
	endpoint string
}

// New creates a new feed client.
// If endpoint is empty, uses CONVOFLOW_FEED_URL env var or defaults to localhost:8486.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("CONVOFLOW_FEED_URL")
	}
	if endpoint == "" {
		endpoint = "ws://localhost:8486/events"
	}
	return &Client{endpoint: endpoint}
}

// Watch connects to the feed and invokes onEvent for every event until the
// context is cancelled or the connection drops. Return an error from onEvent
// to abort.
func (c *Client) Watch(ctx context.Context, onEvent func(ev feed.Event) error) error {
	// Accept http(s) endpoints too
	wsEndpoint := c.endpoint
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	// Track connection state for proper cleanup
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	// Close the connection when the context is cancelled so ReadJSON unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var ev feed.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := onEvent(ev); err != nil {
			return err
		}
	}
}
