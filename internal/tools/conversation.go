package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/convoflow-go/internal/models"
)

// conversationView is the JSON shape returned for a conversation, with the
// record id flattened to a string.
type conversationView struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	CurrentScore      int       `json:"current_score"`
	CumulativeScore   int       `json:"cumulative_score"`
	LastTags          []string  `json:"last_tags"`
	TrustLevel        int       `json:"trust_level"`
	Stage             string    `json:"stage"`
	MessageCount      int       `json:"message_count"`
	ConversationCost  float64   `json:"conversation_cost"`
	OverBudget        bool      `json:"over_budget"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
	CreatedAt         time.Time `json:"created_at"`
}

func toConversationView(c *models.Conversation) conversationView {
	return conversationView{
		ID:                models.MustRecordIDString(c.ID),
		UserID:            c.UserID,
		CurrentScore:      c.CurrentScore,
		CumulativeScore:   c.CumulativeScore,
		LastTags:          c.LastTags,
		TrustLevel:        c.TrustLevel,
		Stage:             string(c.Stage),
		MessageCount:      c.MessageCount,
		ConversationCost:  c.ConversationCost,
		OverBudget:        c.OverBudget,
		LastInteractionAt: c.LastInteractionAt,
		CreatedAt:         c.CreatedAt,
	}
}

// GetConversationInput defines the input schema for the get_conversation tool.
type GetConversationInput struct {
	UserID string `json:"user_id" jsonschema:"required,Stable identifier of the user"`
}

// NewGetConversationHandler creates the get_conversation tool handler.
func NewGetConversationHandler(deps *Dependencies) mcp.ToolHandlerFor[GetConversationInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetConversationInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.UserID == "" {
			return ErrorResult("user_id is required", "Provide the stable identifier of the user"), nil, nil
		}

		conv, err := deps.Store.FindConversationByUserID(ctx, input.UserID)
		if err != nil {
			deps.Logger.Error("get_conversation failed", "user", input.UserID, "error", err)
			return ErrorResult("Failed to load conversation", "Database may be unavailable"), nil, nil
		}
		if conv == nil {
			return ErrorResult("No conversation found for user "+input.UserID,
				"Conversations are created on the first tag_message call"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(toConversationView(conv), "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}

// ListConversationsInput defines the input schema for the list_conversations tool.
type ListConversationsInput struct{}

// NewListConversationsHandler creates the list_conversations tool handler.
// Conversations come back most recently active first.
func NewListConversationsHandler(deps *Dependencies) mcp.ToolHandlerFor[ListConversationsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListConversationsInput) (
		*mcp.CallToolResult, any, error,
	) {
		convs, err := deps.Store.ListConversations(ctx)
		if err != nil {
			deps.Logger.Error("list_conversations failed", "error", err)
			return ErrorResult("Failed to list conversations", "Database may be unavailable"), nil, nil
		}

		views := make([]conversationView, 0, len(convs))
		for i := range convs {
			views = append(views, toConversationView(&convs[i]))
		}

		jsonBytes, _ := json.MarshalIndent(views, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}

// eventView is the JSON shape returned for an event.
type eventView struct {
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ConversationEventsInput defines the input schema for the conversation_events tool.
type ConversationEventsInput struct {
	UserID string `json:"user_id" jsonschema:"required,Stable identifier of the user"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Return only the most recent N events"`
}

// NewConversationEventsHandler creates the conversation_events tool handler.
// Events come back in append order, oldest first.
func NewConversationEventsHandler(deps *Dependencies) mcp.ToolHandlerFor[ConversationEventsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ConversationEventsInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.UserID == "" {
			return ErrorResult("user_id is required", "Provide the stable identifier of the user"), nil, nil
		}

		conv, err := deps.Store.FindConversationByUserID(ctx, input.UserID)
		if err != nil {
			deps.Logger.Error("conversation_events failed", "user", input.UserID, "error", err)
			return ErrorResult("Failed to load conversation", "Database may be unavailable"), nil, nil
		}
		if conv == nil {
			return ErrorResult("No conversation found for user "+input.UserID,
				"Conversations are created on the first tag_message call"), nil, nil
		}

		events, err := deps.Events.ListEventsByConversation(ctx, models.MustRecordIDString(conv.ID))
		if err != nil {
			deps.Logger.Error("conversation_events failed", "user", input.UserID, "error", err)
			return ErrorResult("Failed to load events", "Database may be unavailable"), nil, nil
		}

		if input.Limit > 0 && len(events) > input.Limit {
			events = events[len(events)-input.Limit:]
		}

		views := make([]eventView, 0, len(events))
		for _, ev := range events {
			views = append(views, eventView{
				Type:      string(ev.Type),
				Metadata:  ev.Metadata,
				CreatedAt: ev.CreatedAt,
			})
		}

		jsonBytes, _ := json.MarshalIndent(views, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
