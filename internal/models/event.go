package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// EventType classifies a conversation event.
type EventType string

const (
	EventMessageReceived   EventType = "message_received"
	EventSignalsDetected   EventType = "signals_detected"
	EventStageChanged      EventType = "stage_changed"
	EventAssistantResponse EventType = "assistant_response"
	EventTaskCompleted     EventType = "task_completed"
)

// ConversationEvent is one immutable entry in a conversation's append-only
// history. Ordering by CreatedAt defines the replayable event log.
type ConversationEvent struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	Type         EventType              `json:"type"`
	Metadata     map[string]any         `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// DialogueTurn is one entry of the ordered history handed to a backend for
// response generation.
type DialogueTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
