package llm

import (
	"context"
	"fmt"
)

// Client is the common surface all providers implement.
type Client interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// NewClient constructs the client for the configured provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for provider %s", cfg.Provider)
	}
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
