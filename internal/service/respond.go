package service

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/convoflow-go/internal/metrics"
	"github.com/raphaelgruber/convoflow-go/internal/models"
	"github.com/raphaelgruber/convoflow-go/internal/provider"
)

// DefaultHistoryWindow bounds the number of dialogue turns handed to the
// backend when no window is configured.
const DefaultHistoryWindow = 10

// RespondResult is returned to the caller after a reply has been generated.
// Stage and trust are read-only in this path; only tagging mutates them.
type RespondResult struct {
	Response   string       `json:"response"`
	Stage      models.Stage `json:"stage"`
	TrustLevel int          `json:"trust_level"`
}

// Responder is the response generation orchestrator.
type Responder struct {
	deps   Deps
	window int
}

// NewResponder creates the response orchestrator with the given history
// window (<=0 selects DefaultHistoryWindow).
func NewResponder(deps Deps, window int) *Responder {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Responder{deps: deps, window: window}
}

// GenerateResponse produces a reply to the user's message, steered by the
// recent dialogue history and conversation context. Router exhaustion is
// fatal here since a reply cannot be faked.
func (r *Responder) GenerateResponse(ctx context.Context, userID, message, personaID, extra string) (*RespondResult, error) {
	dbStart := time.Now()
	conv, err := r.deps.Store.FindOrCreateConversation(ctx, userID, r.deps.Engine.InitialStage())
	r.deps.timeDB(dbStart)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}
	convID, err := models.RecordIDString(conv.ID)
	if err != nil {
		return nil, err
	}

	history, err := r.recentDialogue(ctx, convID, message)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	start := time.Now()
	res, err := r.deps.Router.GenerateResponse(ctx, provider.GenerateInput{
		Message:    message,
		History:    history,
		Stage:      conv.Stage,
		TrustLevel: conv.TrustLevel,
		PersonaID:  personaID,
		Extra:      extra,
	})
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.RecordLLMUsage(metrics.OpGenerate, time.Since(start), int64(res.TokensUsed))
	}

	if err := r.deps.appendEvent(ctx, convID, models.EventAssistantResponse, map[string]any{
		"content":     res.Text,
		"tokens_used": res.TokensUsed,
	}); err != nil {
		return nil, fmt.Errorf("append response event: %w", err)
	}
	dbStart = time.Now()
	err = r.deps.Store.TouchConversation(ctx, convID)
	r.deps.timeDB(dbStart)
	if err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	return &RespondResult{
		Response:   res.Text,
		Stage:      conv.Stage,
		TrustLevel: conv.TrustLevel,
	}, nil
}

// recentDialogue loads the conversation's events, keeps only message and
// response events, takes the last window entries and maps them to ordered
// role/content turns. When the current message was already logged by the
// tagging pipeline it appears as the final user turn; that turn is dropped
// so the backend does not see the message twice.
func (r *Responder) recentDialogue(ctx context.Context, conversationID, current string) ([]models.DialogueTurn, error) {
	start := time.Now()
	events, err := r.deps.Events.ListEventsByConversation(ctx, conversationID)
	r.deps.timeDB(start)
	if err != nil {
		return nil, err
	}

	turns := make([]models.DialogueTurn, 0, len(events))
	for _, ev := range events {
		role := ""
		switch ev.Type {
		case models.EventMessageReceived:
			role = "user"
		case models.EventAssistantResponse:
			role = "assistant"
		default:
			continue
		}
		content, _ := ev.Metadata["content"].(string)
		if content == "" {
			continue
		}
		turns = append(turns, models.DialogueTurn{Role: role, Content: content})
	}

	if n := len(turns); n > 0 && turns[n-1].Role == "user" && turns[n-1].Content == current {
		turns = turns[:n-1]
	}
	if len(turns) > r.window {
		turns = turns[len(turns)-r.window:]
	}
	return turns, nil
}
