package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raphaelgruber/convoflow-go/internal/scoring"
)

// knownSignals lists the signals backends are asked to detect, in the order
// they appear in the classification prompt.
var knownSignals = []string{
	scoring.SignalArchitectureDesign,
	scoring.SignalTaskCompleted,
	scoring.SignalUrgency,
	scoring.SignalClarification,
	scoring.SignalPositiveFeedback,
	scoring.SignalObjection,
	scoring.SignalBlocker,
	scoring.SignalDisengagement,
}

// classifySystemPrompt instructs the model to emit a strict JSON object.
// Anything the model adds around the object is stripped before parsing.
func classifySystemPrompt() string {
	return fmt.Sprintf(`You are a conversation analyst. Classify the user's message.

Detect topic/entity tags (short uppercase labels) and behavioral signals.
Signals MUST come from this list:
%s

Respond with ONLY a JSON object, no prose:
{"tags": ["..."], "signals": ["..."]}`, strings.Join(knownSignals, ", "))
}

func classifyUserPrompt(in ClassifyInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation context: stage=%s trust=%d", in.Stage, in.TrustLevel)
	if len(in.LastTags) > 0 {
		fmt.Fprintf(&b, " previous_tags=%s", strings.Join(in.LastTags, ","))
	}
	fmt.Fprintf(&b, "\n\nMessage:\n%s", in.Message)
	return b.String()
}

func generateSystemPrompt(in GenerateInput) string {
	var b strings.Builder
	b.WriteString("You are a helpful engineering assistant in an ongoing conversation.\n")
	fmt.Fprintf(&b, "The conversation is in the %q stage with trust level %d/100. ", in.Stage, in.TrustLevel)
	b.WriteString("Answer the latest message, staying consistent with the dialogue history.")
	if in.PersonaID != "" {
		fmt.Fprintf(&b, "\nAdopt the %q persona.", in.PersonaID)
	}
	if in.Extra != "" {
		fmt.Fprintf(&b, "\nAdditional context:\n%s", in.Extra)
	}
	return b.String()
}

// classifyPayload is the JSON object classification backends must produce.
type classifyPayload struct {
	Tags    []string `json:"tags"`
	Signals []string `json:"signals"`
}

// parseClassification extracts tags and signals from a model response.
// Tolerates code fences and surrounding prose; a missing or malformed JSON
// object is a backend failure (the router falls through to the next backend).
func parseClassification(raw string) ([]string, []string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, nil, fmt.Errorf("no JSON object in classification response")
	}

	var payload classifyPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, nil, fmt.Errorf("parse classification: %w", err)
	}

	return normalizeLabels(payload.Tags), normalizeLabels(payload.Signals), nil
}

// normalizeLabels uppercases, trims and deduplicates labels, preserving
// first-seen order.
func normalizeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.ToUpper(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// estimateTokens approximates token usage from text length (~4 chars per
// token) for backends that do not report usage.
func estimateTokens(texts ...string) int {
	chars := 0
	for _, t := range texts {
		chars += len(t)
	}
	return chars / 4
}
