package speech

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

type SynthesizerConfig struct {
	Provider        string
	OpenAI          *openai.Client
	CredentialsJSON []byte // service account, google only
	VoiceEN         string
	VoiceRU         string
}

func NewSynthesizer(ctx context.Context, cfg SynthesizerConfig) (Synthesizer, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai synthesizer requires an openai client")
		}
		return NewOpenAISynthesizer(cfg.OpenAI, cfg.VoiceEN, cfg.VoiceRU), nil
	case ProviderGoogle:
		if len(cfg.CredentialsJSON) == 0 {
			return nil, fmt.Errorf("google synthesizer requires service account credentials")
		}
		return NewGoogleSynthesizer(ctx, cfg.CredentialsJSON, cfg.VoiceEN, cfg.VoiceRU)
	default:
		return nil, fmt.Errorf("unknown tts provider %s", cfg.Provider)
	}
}
