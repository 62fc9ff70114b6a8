// Package llm contains the model clients that back exploration decisions.
// Providers differ in transport and SDK; every client reduces to the same
// Complete surface returning text plus token counts.
package llm

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a model backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// ParseProvider normalizes a configured provider name.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderAnthropic:
		return ProviderAnthropic, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderGemini:
		return ProviderGemini, nil
	}
	return "", fmt.Errorf("unknown llm provider %q (want anthropic, openai or gemini)", s)
}

// Completion is one model response with its usage accounting.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Config selects and tunes a client.
type Config struct {
	Provider    Provider
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

const (
	defaultMaxTokens = 4096
	defaultTimeout   = 2 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}
