package llm

import (
	"context"
	"fmt"

	"github.com/minechat/minechat-be/internal/shared/config"
)

// LLMProvider abstracts the generation backend
type LLMProvider interface {
	// GenerateResponse produces a reply. maxTokens caps generation strength;
	// 0 means provider default.
	GenerateResponse(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error)
	GetProviderName() string
}

// NewProvider creates a provider from config. "openai" talks to api.openai.com;
// any other provider name is treated as an OpenAI-compatible endpoint
// selected by LLM_BASE_URL (e.g. DeepSeek).
func NewProvider(cfg *config.Config) (LLMProvider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.LLMModel, ""), nil
	default:
		if cfg.LLMBaseURL == "" {
			return nil, fmt.Errorf("LLM_BASE_URL is required for provider %q", cfg.LLMProvider)
		}
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.LLMModel, cfg.LLMBaseURL), nil
	}
}
