package service

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/convoflow-go/internal/db"
	"github.com/raphaelgruber/convoflow-go/internal/metrics"
	"github.com/raphaelgruber/convoflow-go/internal/models"
	"github.com/raphaelgruber/convoflow-go/internal/provider"
	"github.com/raphaelgruber/convoflow-go/internal/scoring"
)

// TagResult is returned to the caller after a message has been tagged and
// the conversation state advanced.
type TagResult struct {
	ConversationID string         `json:"conversation_id"`
	Score          int            `json:"score"`
	Stage          models.Stage   `json:"stage"`
	TrustLevel     int            `json:"trust_level"`
	Tags           []string       `json:"tags"`
	Signals        []string       `json:"signals"`
	Cost           float64        `json:"cost"`
	OverBudget     bool           `json:"over_budget"`
	Degraded       bool           `json:"degraded,omitempty"`
}

// Tagger is the message tagging orchestrator: it classifies an inbound
// message, advances score/stage/trust/budget and persists the transition
// plus its events.
type Tagger struct {
	deps Deps
}

// NewTagger creates the tagging orchestrator.
func NewTagger(deps Deps) *Tagger {
	return &Tagger{deps: deps}
}

// TagMessage processes one inbound message for the user's conversation.
//
// Persistence failures are fatal and propagate. Classification failure is
// not: if the router is exhausted, a degraded UNCLASSIFIED result is
// substituted so the conversation always advances. Classification is
// best-effort by contract.
func (t *Tagger) TagMessage(ctx context.Context, userID, message string) (*TagResult, error) {
	dbStart := time.Now()
	conv, err := t.deps.Store.FindOrCreateConversation(ctx, userID, t.deps.Engine.InitialStage())
	t.deps.timeDB(dbStart)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}
	convID, err := models.RecordIDString(conv.ID)
	if err != nil {
		return nil, err
	}

	if err := t.deps.appendEvent(ctx, convID, models.EventMessageReceived, map[string]any{
		"content": message,
	}); err != nil {
		return nil, fmt.Errorf("append message event: %w", err)
	}

	res := t.classify(ctx, conv, message)

	if len(res.Signals) > 0 {
		if err := t.deps.appendEvent(ctx, convID, models.EventSignalsDetected, map[string]any{
			"signals": res.Signals,
		}); err != nil {
			return nil, fmt.Errorf("append signals event: %w", err)
		}
		for _, s := range res.Signals {
			if s == scoring.SignalTaskCompleted {
				if err := t.deps.appendEvent(ctx, convID, models.EventTaskCompleted, nil); err != nil {
					return nil, fmt.Errorf("append task event: %w", err)
				}
				break
			}
		}
	}

	delta := t.deps.Engine.ScoreDelta(res.Signals)
	newScore := t.deps.Engine.UpdateScore(conv.CurrentScore, res.Signals)
	newStage := t.deps.Engine.DeriveStage(newScore)

	if newStage != conv.Stage {
		if err := t.deps.appendEvent(ctx, convID, models.EventStageChanged, map[string]any{
			"from": string(conv.Stage),
			"to":   string(newStage),
		}); err != nil {
			return nil, fmt.Errorf("append stage event: %w", err)
		}
		t.deps.logger().Info("conversation stage changed",
			"user", userID, "from", conv.Stage, "to", newStage, "score", newScore)
	}

	cost := t.deps.Tracker.CalculateCost(res.TokensUsed)
	trust := scoring.ClampTrust(conv.TrustLevel + t.deps.Engine.TrustDelta(res.Signals))

	// cumulative_score accumulates gains only; losses never roll it back
	cumulativeDelta := delta
	if cumulativeDelta < 0 {
		cumulativeDelta = 0
	}

	dbStart = time.Now()
	updated, err := t.deps.Store.UpdateConversation(ctx, convID, db.ConversationUpdate{
		Score:           newScore,
		CumulativeDelta: cumulativeDelta,
		Tags:            res.Tags,
		Trust:           trust,
		Stage:           newStage,
		CostDelta:       cost,
		BudgetThreshold: t.deps.Tracker.Threshold(),
	})
	t.deps.timeDB(dbStart)
	if err != nil {
		return nil, fmt.Errorf("persist conversation: %w", err)
	}

	if updated.OverBudget {
		t.deps.logger().Warn("conversation over budget",
			"user", userID, "total_cost", updated.ConversationCost)
	}

	return &TagResult{
		ConversationID: convID,
		Score:          updated.CurrentScore,
		Stage:          updated.Stage,
		TrustLevel:     updated.TrustLevel,
		Tags:           res.Tags,
		Signals:        res.Signals,
		Cost:           cost,
		OverBudget:     updated.OverBudget,
		Degraded:       res.Degraded,
	}, nil
}

// classify calls the router and downgrades exhaustion to the neutral
// substitute result.
func (t *Tagger) classify(ctx context.Context, conv *models.Conversation, message string) provider.ClassificationResult {
	start := time.Now()
	res, err := t.deps.Router.Classify(ctx, provider.ClassifyInput{
		Message:    message,
		LastTags:   conv.LastTags,
		Stage:      conv.Stage,
		TrustLevel: conv.TrustLevel,
	})
	if err != nil {
		t.deps.logger().Warn("classification degraded, all backends failed",
			"user", conv.UserID, "error", err)
		return provider.DegradedClassification()
	}

	if t.deps.Metrics != nil {
		t.deps.Metrics.RecordLLMUsage(metrics.OpClassify, time.Since(start), int64(res.TokensUsed))
	}
	return res
}
