package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphaelgruber/convoflow-go/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SurrealDBNamespace == "" {
		t.Error("expected default namespace")
	}
	if len(cfg.ProviderChain) == 0 {
		t.Error("expected a default provider chain")
	}
	if cfg.HistoryWindow != 10 {
		t.Errorf("HistoryWindow = %d, want 10", cfg.HistoryWindow)
	}
	if cfg.BudgetThreshold != 5.0 {
		t.Errorf("BudgetThreshold = %v, want 5.0", cfg.BudgetThreshold)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "convoflow.yaml")

	content := `
providers: [bedrock, ollama]
budget_threshold: 2.5
history_window: 4
tables:
  weights:
    ARCHITECTURE_DESIGN: 40
    BLOCKER: -20
  trust_deltas:
    POSITIVE_FEEDBACK: 10
  thresholds:
    - stage: triage
      below: 30
    - stage: analysis
      below: 60
  final_stage: review
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONVOFLOW_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.ProviderChain) != 2 || cfg.ProviderChain[0] != "bedrock" {
		t.Errorf("ProviderChain = %v, want [bedrock ollama]", cfg.ProviderChain)
	}
	if cfg.BudgetThreshold != 2.5 {
		t.Errorf("BudgetThreshold = %v, want 2.5", cfg.BudgetThreshold)
	}
	if cfg.HistoryWindow != 4 {
		t.Errorf("HistoryWindow = %d, want 4", cfg.HistoryWindow)
	}

	// Tables round-trip into the scoring engine.
	engine, err := cfg.Engine()
	if err != nil {
		t.Fatalf("Engine failed: %v", err)
	}
	if got := engine.UpdateScore(0, []string{"ARCHITECTURE_DESIGN"}); got != 40 {
		t.Errorf("custom weight not applied: got %d, want 40", got)
	}
	if got := engine.DeriveStage(30); got != models.StageAnalysis {
		t.Errorf("custom threshold not applied: got %q, want analysis", got)
	}
	if got := engine.DeriveStage(60); got != models.StageReview {
		t.Errorf("final stage not applied: got %q, want review", got)
	}
}

func TestLoadBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("providers: [unterminated"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONVOFLOW_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
