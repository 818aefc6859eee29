// Package models defines data structures for the Convoflow conversation store.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Stage is a coarse pipeline phase derived solely from the readiness score
// via fixed ascending thresholds.
type Stage string

const (
	StageTriage         Stage = "triage"
	StageAnalysis       Stage = "analysis"
	StageImplementation Stage = "implementation"
	StageReview         Stage = "review"
)

// Stages lists all stages in ascending order.
var Stages = []Stage{StageTriage, StageAnalysis, StageImplementation, StageReview}

// DefaultTrustLevel is the trust assigned to a newly created conversation.
const DefaultTrustLevel = 50

// Conversation is the per-user orchestration state. One row per user id.
//
// Invariants: CurrentScore is never negative, TrustLevel stays in [0,100],
// CumulativeScore only grows (it accumulates the positive portion of each
// score delta, never the negative portion), MessageCount and
// ConversationCost are monotonic.
type Conversation struct {
	ID                surrealmodels.RecordID `json:"id"`
	UserID            string                 `json:"user_id"`
	CurrentScore      int                    `json:"current_score"`
	CumulativeScore   int                    `json:"cumulative_score"`
	LastTags          []string               `json:"last_tags"`
	TrustLevel        int                    `json:"trust_level"`
	Stage             Stage                  `json:"stage"`
	MessageCount      int                    `json:"message_count"`
	ConversationCost  float64                `json:"conversation_cost"`
	OverBudget        bool                   `json:"over_budget"`
	LastInteractionAt time.Time              `json:"last_interaction_at"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}
