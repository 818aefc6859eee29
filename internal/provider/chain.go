package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted in a chain configuration.
const (
	ChainBedrock   = "bedrock"
	ChainAnthropic = ProviderAnthropic
	ChainOpenAI    = ProviderOpenAI
	ChainOllama    = ProviderOllama
)

// ChainConfig describes the ordered backend chain and the per-provider
// settings needed to construct it.
type ChainConfig struct {
	// Chain lists backend names in priority order: best quality first,
	// cheapest/fastest fallback last.
	Chain []string

	BedrockModel  string
	BedrockRegion string

	AnthropicAPIKey string
	AnthropicModel  string

	OpenAIAPIKey string
	OpenAIModel  string

	OllamaHost  string
	OllamaModel string
}

// NewChain constructs the configured backends in order and wraps them in a
// Router.
func NewChain(ctx context.Context, cfg ChainConfig, logger *slog.Logger) (*Router, error) {
	backends := make([]Backend, 0, len(cfg.Chain))
	for _, name := range cfg.Chain {
		var (
			b   Backend
			err error
		)
		switch name {
		case ChainBedrock:
			b, err = NewBedrockBackend(ctx, cfg.BedrockModel, cfg.BedrockRegion)
		case ChainAnthropic:
			b, err = NewLangChainBackend(LangChainConfig{
				Provider:        ProviderAnthropic,
				Model:           cfg.AnthropicModel,
				AnthropicAPIKey: cfg.AnthropicAPIKey,
			})
		case ChainOpenAI:
			b, err = NewLangChainBackend(LangChainConfig{
				Provider:     ProviderOpenAI,
				Model:        cfg.OpenAIModel,
				OpenAIAPIKey: cfg.OpenAIAPIKey,
			})
		case ChainOllama:
			b, err = NewLangChainBackend(LangChainConfig{
				Provider:   ProviderOllama,
				Model:      cfg.OllamaModel,
				OllamaHost: cfg.OllamaHost,
			})
		default:
			return nil, fmt.Errorf("unknown backend %q in provider chain", name)
		}
		if err != nil {
			return nil, fmt.Errorf("construct backend %q: %w", name, err)
		}
		backends = append(backends, b)
	}

	return NewRouter(logger, backends...)
}
