package provider

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Supported langchaingo providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// LangChainConfig selects and configures a langchaingo-backed model.
type LangChainConfig struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OllamaHost      string
}

// LangChainBackend implements Backend on top of a langchaingo llms.Model.
type LangChainBackend struct {
	llm       llms.Model
	name      string
	modelName string
}

// Compile-time check that LangChainBackend implements Backend.
var _ Backend = (*LangChainBackend)(nil)

// NewLangChainBackend creates a backend for the configured provider.
func NewLangChainBackend(cfg LangChainConfig) (*LangChainBackend, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &LangChainBackend{
		llm:       model,
		name:      fmt.Sprintf("%s/%s", cfg.Provider, cfg.Model),
		modelName: cfg.Model,
	}, nil
}

// Name identifies the backend in logs.
func (b *LangChainBackend) Name() string {
	return b.name
}

// Classify asks the model for the strict JSON classification object.
func (b *LangChainBackend) Classify(ctx context.Context, in ClassifyInput) (ClassificationResult, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, classifySystemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, classifyUserPrompt(in)),
	}

	resp, err := b.llm.GenerateContent(ctx, messages)
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ClassificationResult{}, fmt.Errorf("classify: no response choices")
	}

	choice := resp.Choices[0]
	tags, signals, err := parseClassification(choice.Content)
	if err != nil {
		return ClassificationResult{}, err
	}

	return ClassificationResult{
		Tags:       tags,
		Signals:    signals,
		TokensUsed: tokensFromChoice(choice, in.Message),
	}, nil
}

// GenerateResponse produces a reply steered by history and context.
func (b *LangChainBackend) GenerateResponse(ctx context.Context, in GenerateInput) (GenerationResult, error) {
	messages := make([]llms.MessageContent, 0, len(in.History)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, generateSystemPrompt(in)))
	for _, turn := range in.History {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, in.Message))

	resp, err := b.llm.GenerateContent(ctx, messages)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return GenerationResult{}, fmt.Errorf("generate: no response choices")
	}

	choice := resp.Choices[0]
	return GenerationResult{
		Text:       choice.Content,
		TokensUsed: tokensFromChoice(choice, in.Message),
	}, nil
}

// tokensFromChoice extracts token usage from GenerationInfo. Providers
// report under different keys; fall back to a length estimate when none
// are present.
func tokensFromChoice(choice *llms.ContentChoice, prompt string) int {
	if choice.GenerationInfo != nil {
		if total := infoInt(choice.GenerationInfo, "TotalTokens"); total > 0 {
			return total
		}
		in := infoInt(choice.GenerationInfo, "PromptTokens") + infoInt(choice.GenerationInfo, "InputTokens")
		out := infoInt(choice.GenerationInfo, "CompletionTokens") + infoInt(choice.GenerationInfo, "OutputTokens")
		if in+out > 0 {
			return in + out
		}
	}
	return estimateTokens(prompt, choice.Content)
}

func infoInt(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
