package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "llama3.2"
)

// Config selects and configures an AI provider.
type Config struct {
	// Provider is one of "gemini", "openai" or "mock".
	Provider string
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds configuration for OpenAI-compatible endpoints.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gemini":
		return NewGeminiProvider(ctx, cfg.Gemini)
	case "openai", "ollama":
		return NewOpenAIProvider(cfg.OpenAI)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
