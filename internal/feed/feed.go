// Package feed broadcasts conversation events to websocket subscribers.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/convoflow-go/internal/models"
)

// subscriberBuffer is the per-subscriber event queue size. A subscriber
// that cannot keep up loses events rather than stalling the publisher.
const subscriberBuffer = 64

const keepAlivePingInterval = 10 * time.Second

// Event is the wire format pushed to subscribers.
type Event struct {
	ConversationID string         `json:"conversation_id"`
	Type           string         `json:"type"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	At             time.Time      `json:"at"`
}

type subscriber struct {
	ch   chan Event
	done chan struct{}
}

// Hub fans conversation events out to connected websocket clients.
// Publish never blocks; it satisfies the orchestrators' sink contract.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	server *http.Server
}

// NewHub creates a hub that is ready to accept subscribers.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local dev
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Publish queues the event for every subscriber. Slow subscribers drop
// events; the publisher is never blocked by a stalled connection.
func (h *Hub) Publish(conversationID string, eventType models.EventType, metadata map[string]any) {
	ev := Event{
		ConversationID: conversationID,
		Type:           string(eventType),
		Metadata:       metadata,
		At:             time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Debug("feed subscriber lagging, dropping event", "type", ev.Type)
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{
		ch:   make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.done)
	}
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := h.subscribe()
	h.logger.Debug("feed subscriber connected", "remote", conn.RemoteAddr())

	defer func() {
		h.unsubscribe(sub)
		conn.Close()
		h.logger.Debug("feed subscriber disconnected", "remote", conn.RemoteAddr())
	}()

	// Drain the read side so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unsubscribe(sub)
				return
			}
		}
	}()

	ping := time.NewTicker(keepAlivePingInterval)
	defer ping.Stop()

	for {
		select {
		case ev := <-sub.ch:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-sub.done:
			return
		}
	}
}

// Start serves the feed on addr with /events and /health endpoints.
// It returns once the listener is running; errors after startup are logged.
func (h *Hub) Start(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/events", h)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	h.server = &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		h.logger.Info("event feed listening", "addr", addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("event feed server error", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server and disconnects all subscribers.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.done)
	}
	h.mu.Unlock()

	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}
