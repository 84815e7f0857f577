package factory

import (
	"fmt"

	"law-mate-be/pkg/llm"
	"law-mate-be/pkg/llm/ollama"
	"law-mate-be/pkg/llm/openai"
)

// ProviderConfig names one generative backend and its credentials.
type ProviderConfig struct {
	Type    string // "openai" or "ollama"
	Model   string
	APIKey  string
	BaseURL string
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case "openai":
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}

// NewFallbackChain builds the ordered provider list the pipeline fails over
// through. Configs with an empty Type are skipped, so a secondary provider
// is optional.
func NewFallbackChain(configs ...ProviderConfig) ([]llm.LLMProvider, error) {
	var chain []llm.LLMProvider
	for _, cfg := range configs {
		if cfg.Type == "" {
			continue
		}
		provider, err := NewLLMProvider(cfg)
		if err != nil {
			return nil, err
		}
		chain = append(chain, provider)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no LLM provider configured")
	}
	return chain, nil
}
