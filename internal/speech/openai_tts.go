package speech

import (
	"context"
	"fmt"
	"io"
	"jarvis-backend/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIVoice = openai.VoiceOnyx

type OpenAISynthesizer struct {
	client *openai.Client
	voices map[models.Language]openai.SpeechVoice
}

// NewOpenAISynthesizer uses the given voices per chat language; empty names fall back to onyx.
func NewOpenAISynthesizer(client *openai.Client, voiceEN, voiceRU string) *OpenAISynthesizer {
	pick := func(v string) openai.SpeechVoice {
		if v == "" {
			return defaultOpenAIVoice
		}
		return openai.SpeechVoice(v)
	}
	return &OpenAISynthesizer{
		client: client,
		voices: map[models.Language]openai.SpeechVoice{
			models.LanguageEN: pick(voiceEN),
			models.LanguageRU: pick(voiceRU),
		},
	}
}

func (s *OpenAISynthesizer) voice(language models.Language) openai.SpeechVoice {
	if v, ok := s.voices[language]; ok {
		return v
	}
	return s.voices[models.LanguageEN]
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string, language models.Language) (*Audio, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          s.voice(language),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read openai speech: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("openai speech returned no audio")
	}
	return &Audio{Data: data, ContentType: "audio/mpeg", Ext: ".mp3"}, nil
}
