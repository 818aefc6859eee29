package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/raphaelgruber/convoflow-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// FindOrCreateConversation returns the conversation for the user id,
// creating it with default state (score 0, trust 50, the given initial
// stage) on first contact. A create race against the unique user index is
// resolved by re-reading the winner's row.
func (c *Client) FindOrCreateConversation(ctx context.Context, userID string, initialStage models.Stage) (*models.Conversation, error) {
	existing, err := c.FindConversationByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		CREATE type::record("conversation", $id) SET
			user_id = $user_id,
			current_score = 0,
			cumulative_score = 0,
			last_tags = [],
			trust_level = $trust,
			stage = $stage,
			message_count = 0,
			conversation_cost = 0.0,
			over_budget = false
	`, map[string]any{
		"id":      uuid.NewString(),
		"user_id": userID,
		"trust":   models.DefaultTrustLevel,
		"stage":   string(initialStage),
	})
	if err != nil {
		wrapped := wrapQueryError(err)
		if errors.Is(wrapped, ErrConversationExists) {
			// Lost the create race: another caller inserted this user first
			if conv, findErr := c.FindConversationByUserID(ctx, userID); findErr == nil && conv != nil {
				return conv, nil
			}
		}
		return nil, fmt.Errorf("create conversation: %w", wrapped)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create conversation: empty result")
	}
	conv := (*results)[0].Result[0]
	return &conv, nil
}

// FindConversationByUserID returns the conversation for a user id, or nil
// if absent.
func (c *Client) FindConversationByUserID(ctx context.Context, userID string) (*models.Conversation, error) {
	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		SELECT * FROM conversation WHERE user_id = $user_id LIMIT 1
	`, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	conv := (*results)[0].Result[0]
	return &conv, nil
}

// ListConversations returns all conversations, most recently active first.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		SELECT * FROM conversation ORDER BY last_interaction_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Conversation{}, nil
	}
	return (*results)[0].Result, nil
}

// ConversationUpdate carries the per-message state transition applied by the
// tagging orchestrator.
type ConversationUpdate struct {
	Score int
	// CumulativeDelta is the positive portion of the score delta only;
	// cumulative_score never decreases.
	CumulativeDelta int
	Tags            []string
	Trust           int
	Stage           models.Stage
	CostDelta       float64
	BudgetThreshold float64
}

// UpdateConversation applies one message's full state transition in a single
// UPDATE statement. The accumulators (cumulative_score, message_count,
// conversation_cost) use += so concurrent updates from the same user cannot
// lose increments, and over_budget is derived from the post-increment cost.
func (c *Client) UpdateConversation(ctx context.Context, id string, u ConversationUpdate) (*models.Conversation, error) {
	if u.CumulativeDelta < 0 {
		return nil, fmt.Errorf("cumulative delta must be non-negative, got %d", u.CumulativeDelta)
	}
	if u.Tags == nil {
		u.Tags = []string{}
	}

	results, err := surrealdb.Query[[]models.Conversation](ctx, c.db, `
		UPDATE type::record("conversation", $id) SET
			current_score = $score,
			cumulative_score += $cumulative_delta,
			last_tags = $tags,
			trust_level = $trust,
			stage = $stage,
			message_count += 1,
			conversation_cost += $cost_delta,
			over_budget = conversation_cost >= $budget_threshold,
			last_interaction_at = time::now(),
			updated_at = time::now()
	`, map[string]any{
		"id":               id,
		"score":            u.Score,
		"cumulative_delta": u.CumulativeDelta,
		"tags":             u.Tags,
		"trust":            u.Trust,
		"stage":            string(u.Stage),
		"cost_delta":       u.CostDelta,
		"budget_threshold": u.BudgetThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("update conversation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("update conversation %s: %w", id, ErrNotFound)
	}
	conv := (*results)[0].Result[0]
	return &conv, nil
}

// TouchConversation bumps the last-interaction timestamp without changing
// scoring state. Used by the response path.
func (c *Client) TouchConversation(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("conversation", $id) SET
			last_interaction_at = time::now(),
			updated_at = time::now()
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// AppendEvent writes one immutable event to a conversation's history.
func (c *Client) AppendEvent(ctx context.Context, conversationID string, eventType models.EventType, metadata map[string]any) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE conversation_event SET
			conversation = type::record("conversation", $conversation),
			type = $type,
			metadata = $metadata
	`, map[string]any{
		"conversation": conversationID,
		"type":         string(eventType),
		"metadata":     metadata,
	})
	if err != nil {
		return fmt.Errorf("append event: %w", wrapQueryError(err))
	}
	return nil
}

// ListEventsByConversation returns a conversation's events ordered by
// creation time, oldest first. This ordering defines the replayable history.
func (c *Client) ListEventsByConversation(ctx context.Context, conversationID string) ([]models.ConversationEvent, error) {
	results, err := surrealdb.Query[[]models.ConversationEvent](ctx, c.db, `
		SELECT * FROM conversation_event
		WHERE conversation = type::record("conversation", $conversation)
		ORDER BY created_at ASC
	`, map[string]any{"conversation": conversationID})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.ConversationEvent{}, nil
	}
	return (*results)[0].Result, nil
}
