package llm

import (
	"context"
	"log"

	"github.com/minechat/minechat-be/internal/shared/config"
)

// Service wraps the LLM provider for dependency injection
type Service struct {
	provider LLMProvider
}

// NewService creates LLM service with provider from config
func NewService(cfg *config.Config) *Service {
	provider, err := NewProvider(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create LLM provider: %v", err)
	}

	log.Printf("🤖 Using LLM provider: %s (model: %s)", provider.GetProviderName(), cfg.LLMModel)

	return &Service{provider: provider}
}

// NewServiceWithProvider creates service with custom provider (for testing)
func NewServiceWithProvider(provider LLMProvider) *Service {
	return &Service{provider: provider}
}

// GenerateResponse generates AI response
func (s *Service) GenerateResponse(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error) {
	return s.provider.GenerateResponse(ctx, systemPrompt, userMessage, maxTokens)
}

// GetProviderName returns current provider name
func (s *Service) GetProviderName() string {
	return s.provider.GetProviderName()
}
