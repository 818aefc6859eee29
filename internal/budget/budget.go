// Package budget converts token usage to monetary cost and checks spend
// against a per-conversation threshold. Pure and deterministic; both
// configuration values are fixed at construction.
package budget

import "fmt"

// Defaults applied by the config layer when values are left unset.
const (
	DefaultCostPerThousandTokens = 0.002
	DefaultThreshold             = 5.0
)

// Tracker computes message costs and over-budget status.
type Tracker struct {
	costPerThousandTokens float64
	threshold             float64
}

// NewTracker creates a Tracker. Both values must be non-negative; an
// explicit zero is honored, so free classification or a zero budget can
// be configured. Defaulting of unset values happens in the config layer.
func NewTracker(costPerThousandTokens, threshold float64) (*Tracker, error) {
	if costPerThousandTokens < 0 {
		return nil, fmt.Errorf("cost per 1000 tokens must be non-negative, got %v", costPerThousandTokens)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("budget threshold must be non-negative, got %v", threshold)
	}
	return &Tracker{costPerThousandTokens: costPerThousandTokens, threshold: threshold}, nil
}

// CalculateCost returns the monetary cost of the given token usage.
func (t *Tracker) CalculateCost(tokensUsed int) float64 {
	if tokensUsed <= 0 {
		return 0
	}
	return float64(tokensUsed) / 1000 * t.costPerThousandTokens
}

// IsOverBudget reports whether the accumulated cost has reached the
// threshold. The boundary is inclusive.
func (t *Tracker) IsOverBudget(totalCost float64) bool {
	return totalCost >= t.threshold
}

// Threshold returns the configured budget threshold.
func (t *Tracker) Threshold() float64 {
	return t.threshold
}
