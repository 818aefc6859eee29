// Package scoring computes readiness scores, pipeline stages and trust
// levels from detected conversation signals. All functions are pure; the
// signal-weight and stage-threshold tables are data supplied at construction.
package scoring

import (
	"fmt"
	"sort"

	"github.com/raphaelgruber/convoflow-go/internal/models"
)

// Behavioral signals a classification backend may detect in a message.
const (
	SignalArchitectureDesign = "ARCHITECTURE_DESIGN"
	SignalTaskCompleted      = "TASK_COMPLETED"
	SignalUrgency            = "URGENCY"
	SignalClarification      = "CLARIFICATION"
	SignalPositiveFeedback   = "POSITIVE_FEEDBACK"
	SignalObjection          = "OBJECTION"
	SignalBlocker            = "BLOCKER"
	SignalDisengagement      = "DISENGAGEMENT"
)

// DefaultWeights maps signals to signed score deltas. Unknown signals
// contribute 0.
var DefaultWeights = map[string]int{
	SignalArchitectureDesign: 30,
	SignalTaskCompleted:      20,
	SignalUrgency:            15,
	SignalClarification:      10,
	SignalPositiveFeedback:   5,
	SignalObjection:          -5,
	SignalBlocker:            -10,
	SignalDisengagement:      -15,
}

// DefaultTrustDeltas maps signals to trust adjustments. Signals absent from
// the table leave trust untouched.
var DefaultTrustDeltas = map[string]int{
	SignalPositiveFeedback: 5,
	SignalObjection:        -5,
}

// Threshold maps scores below Below to Stage. Thresholds are evaluated in
// ascending order; a score at or above every Below falls into the final stage.
type Threshold struct {
	Stage models.Stage `yaml:"stage"`
	Below int          `yaml:"below"`
}

// DefaultThresholds: triage <25, analysis <50, implementation <80, review
// for everything at or above 80.
var DefaultThresholds = []Threshold{
	{Stage: models.StageTriage, Below: 25},
	{Stage: models.StageAnalysis, Below: 50},
	{Stage: models.StageImplementation, Below: 80},
}

// FinalStage is assigned to scores at or above the last threshold.
const FinalStage = models.StageReview

// Engine evaluates the scoring tables. Immutable after construction.
type Engine struct {
	weights     map[string]int
	trustDeltas map[string]int
	thresholds  []Threshold
	finalStage  models.Stage
}

// NewEngine creates an Engine. Nil tables fall back to the defaults.
// Thresholds must be strictly ascending.
func NewEngine(weights, trustDeltas map[string]int, thresholds []Threshold, finalStage models.Stage) (*Engine, error) {
	if weights == nil {
		weights = DefaultWeights
	}
	if trustDeltas == nil {
		trustDeltas = DefaultTrustDeltas
	}
	if thresholds == nil {
		thresholds = DefaultThresholds
	}
	if finalStage == "" {
		finalStage = FinalStage
	}
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("at least one stage threshold required")
	}
	if !sort.SliceIsSorted(thresholds, func(i, j int) bool {
		return thresholds[i].Below < thresholds[j].Below
	}) {
		return nil, fmt.Errorf("stage thresholds must be ascending")
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i].Below == thresholds[i-1].Below {
			return nil, fmt.Errorf("duplicate stage threshold %d", thresholds[i].Below)
		}
	}
	return &Engine{
		weights:     weights,
		trustDeltas: trustDeltas,
		thresholds:  thresholds,
		finalStage:  finalStage,
	}, nil
}

// Default returns an Engine over the default tables.
func Default() *Engine {
	e, err := NewEngine(nil, nil, nil, "")
	if err != nil {
		panic(err) // defaults are statically valid
	}
	return e
}

// ScoreDelta sums the weights of the given signals. Unknown signals weigh 0.
func (e *Engine) ScoreDelta(signals []string) int {
	delta := 0
	for _, s := range signals {
		delta += e.weights[s]
	}
	return delta
}

// UpdateScore applies the signals to the current score, clamping at zero.
func (e *Engine) UpdateScore(currentScore int, signals []string) int {
	next := currentScore + e.ScoreDelta(signals)
	if next < 0 {
		return 0
	}
	return next
}

// DeriveStage maps a score onto a stage via the ascending thresholds.
func (e *Engine) DeriveStage(score int) models.Stage {
	for _, t := range e.thresholds {
		if score < t.Below {
			return t.Stage
		}
	}
	return e.finalStage
}

// InitialStage is the stage a fresh conversation starts in (the lowest one).
func (e *Engine) InitialStage() models.Stage {
	return e.thresholds[0].Stage
}

// TrustDelta sums the trust adjustments of the given signals.
func (e *Engine) TrustDelta(signals []string) int {
	delta := 0
	for _, s := range signals {
		delta += e.trustDeltas[s]
	}
	return delta
}

// ClampTrust bounds a trust level to [0,100].
func ClampTrust(trust int) int {
	if trust < 0 {
		return 0
	}
	if trust > 100 {
		return 100
	}
	return trust
}
