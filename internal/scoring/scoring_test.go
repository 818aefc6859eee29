package scoring

import (
	"testing"

	"github.com/raphaelgruber/convoflow-go/internal/models"
)

func TestUpdateScore(t *testing.T) {
	e := Default()

	tests := []struct {
		name    string
		current int
		signals []string
		want    int
	}{
		{"no signals", 10, nil, 10},
		{"single positive", 0, []string{SignalArchitectureDesign}, 30},
		{"single negative", 30, []string{SignalBlocker}, 20},
		{"mixed", 0, []string{SignalArchitectureDesign, SignalBlocker}, 20},
		{"unknown signal ignored", 10, []string{"SOMETHING_NEW"}, 10},
		{"unknown mixed with known", 0, []string{"SOMETHING_NEW", SignalClarification}, 10},
		{"clamped at zero", 5, []string{SignalBlocker}, 0},
		{"deep negative clamped", 0, []string{SignalBlocker, SignalDisengagement}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.UpdateScore(tt.current, tt.signals)
			if got != tt.want {
				t.Errorf("UpdateScore(%d, %v) = %d, want %d", tt.current, tt.signals, got, tt.want)
			}
			if got < 0 {
				t.Errorf("UpdateScore returned negative score %d", got)
			}
		})
	}
}

func TestDeriveStage(t *testing.T) {
	e := Default()

	tests := []struct {
		score int
		want  models.Stage
	}{
		{0, models.StageTriage},
		{24, models.StageTriage},
		{25, models.StageAnalysis},
		{49, models.StageAnalysis},
		{50, models.StageImplementation},
		{79, models.StageImplementation},
		{80, models.StageReview},
		{500, models.StageReview},
	}

	for _, tt := range tests {
		got := e.DeriveStage(tt.score)
		if got != tt.want {
			t.Errorf("DeriveStage(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

// Stage derivation must be monotonic non-decreasing and only ever produce
// stages from the fixed enumeration.
func TestDeriveStageMonotonic(t *testing.T) {
	e := Default()

	rank := map[models.Stage]int{}
	for i, s := range models.Stages {
		rank[s] = i
	}

	prev := -1
	for score := 0; score <= 200; score++ {
		stage := e.DeriveStage(score)
		r, ok := rank[stage]
		if !ok {
			t.Fatalf("DeriveStage(%d) = %q, not in stage enumeration", score, stage)
		}
		if r < prev {
			t.Fatalf("DeriveStage not monotonic at score %d: %q", score, stage)
		}
		prev = r
	}
}

func TestTrustDelta(t *testing.T) {
	e := Default()

	tests := []struct {
		name    string
		signals []string
		want    int
	}{
		{"empty", nil, 0},
		{"positive feedback", []string{SignalPositiveFeedback}, 5},
		{"objection", []string{SignalObjection}, -5},
		{"cancel out", []string{SignalPositiveFeedback, SignalObjection}, 0},
		{"score signals do not touch trust", []string{SignalArchitectureDesign, SignalBlocker}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.TrustDelta(tt.signals); got != tt.want {
				t.Errorf("TrustDelta(%v) = %d, want %d", tt.signals, got, tt.want)
			}
		})
	}
}

func TestClampTrust(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-10, 0}, {0, 0}, {50, 50}, {100, 100}, {140, 100},
	}
	for _, tt := range tests {
		if got := ClampTrust(tt.in); got != tt.want {
			t.Errorf("ClampTrust(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(nil, nil, []Threshold{}, ""); err == nil {
		t.Error("expected error for empty thresholds")
	}

	descending := []Threshold{
		{Stage: models.StageAnalysis, Below: 50},
		{Stage: models.StageTriage, Below: 25},
	}
	if _, err := NewEngine(nil, nil, descending, ""); err == nil {
		t.Error("expected error for descending thresholds")
	}

	duplicate := []Threshold{
		{Stage: models.StageTriage, Below: 25},
		{Stage: models.StageAnalysis, Below: 25},
	}
	if _, err := NewEngine(nil, nil, duplicate, ""); err == nil {
		t.Error("expected error for duplicate thresholds")
	}
}

func TestCustomTables(t *testing.T) {
	weights := map[string]int{"HOT": 40}
	thresholds := []Threshold{{Stage: models.StageTriage, Below: 35}}

	e, err := NewEngine(weights, map[string]int{}, thresholds, models.StageReview)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if got := e.UpdateScore(0, []string{"HOT"}); got != 40 {
		t.Errorf("custom weight: got %d, want 40", got)
	}
	if got := e.DeriveStage(40); got != models.StageReview {
		t.Errorf("custom threshold: got %q, want %q", got, models.StageReview)
	}
	if got := e.InitialStage(); got != models.StageTriage {
		t.Errorf("InitialStage = %q, want triage", got)
	}
}
