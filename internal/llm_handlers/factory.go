package llmHandlers

import (
	"context"
	"fmt"
)

type Provider string

const (
	ProviderLangChainOpenAI Provider = "openai"
	ProviderLangChainGroq   Provider = "groq"
	ProviderGemini          Provider = "gemini"
	ProviderAnthropicVertex Provider = "anthropic-vertex"
)

type Config struct {
	Provider    Provider
	Model       string
	APIKey      string
	BaseURL     string // OpenAI compatible endpoints such as Groq
	MaxTokens   int
	Temperature float64

	// Vertex AI only; the service account authenticates instead of APIKey
	CredentialsJSON []byte
	ProjectID       string
	Location        string
}

func New(ctx context.Context, cfg Config) (Client, error) {
	if cfg.Provider == ProviderAnthropicVertex {
		return NewVertexAnthropicClient(ctx, VertexAnthropicConfig{
			CredentialsJSON: cfg.CredentialsJSON,
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			Model:           cfg.Model,
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
		})
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for provider %q", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderLangChainOpenAI, ProviderLangChainGroq:
		if cfg.Provider == ProviderLangChainGroq && cfg.BaseURL == "" {
			return nil, fmt.Errorf("groq provider requires a base url")
		}
		return NewLangChainClient(LangChainConfig{
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	case ProviderGemini:
		return NewGenaiGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: float32(cfg.Temperature),
		})
	default:
		return nil, fmt.Errorf("unknown provider %s", cfg.Provider)
	}
}
