package provider

import (
	"reflect"
	"strings"
	"testing"

	"github.com/raphaelgruber/convoflow-go/internal/models"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantTags    []string
		wantSignals []string
		wantErr     bool
	}{
		{
			name:        "plain object",
			raw:         `{"tags": ["AUTH", "DATABASE"], "signals": ["ARCHITECTURE_DESIGN"]}`,
			wantTags:    []string{"AUTH", "DATABASE"},
			wantSignals: []string{"ARCHITECTURE_DESIGN"},
		},
		{
			name:        "code fenced",
			raw:         "```json\n{\"tags\": [\"auth\"], \"signals\": [\"blocker\"]}\n```",
			wantTags:    []string{"AUTH"},
			wantSignals: []string{"BLOCKER"},
		},
		{
			name:        "surrounding prose",
			raw:         `Sure! Here is the classification: {"tags": ["API"], "signals": []} Hope that helps.`,
			wantTags:    []string{"API"},
			wantSignals: []string{},
		},
		{
			name:        "duplicates and whitespace collapsed",
			raw:         `{"tags": [" auth ", "AUTH", ""], "signals": ["objection", "OBJECTION"]}`,
			wantTags:    []string{"AUTH"},
			wantSignals: []string{"OBJECTION"},
		},
		{
			name:    "no json object",
			raw:     "I cannot classify this message.",
			wantErr: true,
		},
		{
			name:    "malformed json",
			raw:     `{"tags": ["AUTH"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, signals, err := parseClassification(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got tags=%v signals=%v", tags, signals)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseClassification failed: %v", err)
			}
			if !reflect.DeepEqual(tags, tt.wantTags) {
				t.Errorf("tags = %v, want %v", tags, tt.wantTags)
			}
			if !reflect.DeepEqual(signals, tt.wantSignals) {
				t.Errorf("signals = %v, want %v", signals, tt.wantSignals)
			}
		})
	}
}

func TestClassifyPromptsMentionContext(t *testing.T) {
	sys := classifySystemPrompt()
	if !strings.Contains(sys, "ARCHITECTURE_DESIGN") {
		t.Error("system prompt should enumerate known signals")
	}

	user := classifyUserPrompt(ClassifyInput{
		Message:    "how do I shard this table?",
		LastTags:   []string{"DATABASE"},
		Stage:      models.StageAnalysis,
		TrustLevel: 60,
	})
	for _, want := range []string{"stage=analysis", "trust=60", "DATABASE", "how do I shard this table?"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestGenerateSystemPrompt(t *testing.T) {
	in := GenerateInput{
		Stage:      models.StageImplementation,
		TrustLevel: 80,
		PersonaID:  "senior-reviewer",
		Extra:      "user prefers short answers",
	}
	sys := generateSystemPrompt(in)
	for _, want := range []string{"implementation", "80", "senior-reviewer", "short answers"} {
		if !strings.Contains(sys, want) {
			t.Errorf("generate prompt missing %q:\n%s", want, sys)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens(); got != 0 {
		t.Errorf("estimateTokens() = %d, want 0", got)
	}
	if got := estimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("estimateTokens(400 chars) = %d, want 100", got)
	}
}
