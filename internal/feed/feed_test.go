package feed

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/convoflow-go/internal/models"
)

func newTestHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Wait until the subscriber is registered
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return hub, conn
}

func TestHubDeliversEvents(t *testing.T) {
	hub, conn := newTestHub(t)

	hub.Publish("conversation:abc", models.EventStageChanged, map[string]any{
		"from": "triage",
		"to":   "analysis",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}

	if ev.ConversationID != "conversation:abc" {
		t.Errorf("ConversationID = %q", ev.ConversationID)
	}
	if ev.Type != string(models.EventStageChanged) {
		t.Errorf("Type = %q", ev.Type)
	}
	if ev.Metadata["to"] != "analysis" {
		t.Errorf("Metadata = %v", ev.Metadata)
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub, _ := newTestHub(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more events than the subscriber buffer holds, with nobody reading
		for i := 0; i < subscriberBuffer*4; i++ {
			hub.Publish("conversation:x", models.EventMessageReceived, nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	hub.Publish("conversation:y", models.EventMessageReceived, nil)
}

func TestHubShutdownDisconnectsSubscribers(t *testing.T) {
	hub, conn := newTestHub(t)

	if err := hub.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d after shutdown", hub.SubscriberCount())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err == nil {
		t.Error("expected read to fail after shutdown")
	}
}
