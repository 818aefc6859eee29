// Package service implements the message tagging and response generation
// orchestrators over narrow persistence and provider contracts.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/raphaelgruber/convoflow-go/internal/budget"
	"github.com/raphaelgruber/convoflow-go/internal/db"
	"github.com/raphaelgruber/convoflow-go/internal/metrics"
	"github.com/raphaelgruber/convoflow-go/internal/models"
	"github.com/raphaelgruber/convoflow-go/internal/provider"
	"github.com/raphaelgruber/convoflow-go/internal/scoring"
)

// ConversationStore is the persistence collaborator for conversation state.
// Implemented by *db.Client; orchestrator tests use an in-memory fake.
type ConversationStore interface {
	FindOrCreateConversation(ctx context.Context, userID string, initialStage models.Stage) (*models.Conversation, error)
	FindConversationByUserID(ctx context.Context, userID string) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	UpdateConversation(ctx context.Context, id string, u db.ConversationUpdate) (*models.Conversation, error)
	TouchConversation(ctx context.Context, id string) error
}

// EventLog is the append-only event collaborator. Implemented by *db.Client.
type EventLog interface {
	AppendEvent(ctx context.Context, conversationID string, eventType models.EventType, metadata map[string]any) error
	ListEventsByConversation(ctx context.Context, conversationID string) ([]models.ConversationEvent, error)
}

// ProviderRouter is the classification/generation capability consumed by the
// orchestrators. Implemented by *provider.Router.
type ProviderRouter interface {
	Classify(ctx context.Context, in provider.ClassifyInput) (provider.ClassificationResult, error)
	GenerateResponse(ctx context.Context, in provider.GenerateInput) (provider.GenerationResult, error)
}

// EventSink receives a copy of every appended event, e.g. for the live
// websocket feed. Publish must not block.
type EventSink interface {
	Publish(conversationID string, eventType models.EventType, metadata map[string]any)
}

// Deps holds the shared collaborators for both orchestrators.
// Metrics and Sink are optional.
type Deps struct {
	Store   ConversationStore
	Events  EventLog
	Router  ProviderRouter
	Engine  *scoring.Engine
	Tracker *budget.Tracker
	Metrics *metrics.Collector
	Sink    EventSink
	Logger  *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// timeDB records the duration of one store or event-log call.
func (d *Deps) timeDB(start time.Time) {
	if d.Metrics != nil {
		d.Metrics.RecordTiming(metrics.OpDBQuery, time.Since(start))
	}
}

// appendEvent writes the event and mirrors it to the sink.
func (d *Deps) appendEvent(ctx context.Context, conversationID string, eventType models.EventType, metadata map[string]any) error {
	start := time.Now()
	err := d.Events.AppendEvent(ctx, conversationID, eventType, metadata)
	d.timeDB(start)
	if err != nil {
		return err
	}
	if d.Sink != nil {
		d.Sink.Publish(conversationID, eventType, metadata)
	}
	return nil
}
