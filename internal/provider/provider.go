// Package provider routes classification and response-generation calls to an
// ordered list of interchangeable language-model backends.
package provider

import (
	"context"

	"github.com/raphaelgruber/convoflow-go/internal/models"
)

// TagUnclassified is the sentinel tag substituted when every classification
// backend has failed.
const TagUnclassified = "UNCLASSIFIED"

// ClassifyInput carries a raw message plus conversation context into a
// classification call.
type ClassifyInput struct {
	Message    string
	LastTags   []string
	Stage      models.Stage
	TrustLevel int
}

// GenerateInput carries a raw message, the ordered dialogue history and
// steering context into a response-generation call. PersonaID and Extra are
// opaque to the orchestrators; backends may use them to steer tone.
type GenerateInput struct {
	Message    string
	History    []models.DialogueTurn
	Stage      models.Stage
	TrustLevel int
	PersonaID  string
	Extra      string
}

// ClassificationResult is the transient outcome of a classification call.
// Degraded marks the always-succeeding substitute used when the router was
// exhausted; tests and callers can branch on it directly.
type ClassificationResult struct {
	Tags       []string
	Signals    []string
	TokensUsed int
	Degraded   bool
}

// DegradedClassification returns the neutral substitute result: the
// UNCLASSIFIED tag, no signals, zero token usage.
func DegradedClassification() ClassificationResult {
	return ClassificationResult{
		Tags:     []string{TagUnclassified},
		Signals:  []string{},
		Degraded: true,
	}
}

// GenerationResult is the transient outcome of a response-generation call.
type GenerationResult struct {
	Text       string
	TokensUsed int
}

// Backend is the capability set implemented by each interchangeable
// language-model adapter. Both methods fail with a provider-specific error
// on transport or parse failure.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	Classify(ctx context.Context, in ClassifyInput) (ClassificationResult, error)

	GenerateResponse(ctx context.Context, in GenerateInput) (GenerationResult, error)
}
