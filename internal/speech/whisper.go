package speech

import (
	"bytes"
	"context"
	"fmt"
	"jarvis-backend/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperTranscriber sends audio to the OpenAI transcription endpoint.
type WhisperTranscriber struct {
	client *openai.Client
}

func NewWhisperTranscriber(client *openai.Client) *WhisperTranscriber {
	return &WhisperTranscriber{client: client}
}

// Transcribe names the upload after the content type; the endpoint detects the format from the extension.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string, language models.Language) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "audio" + recordingExt(contentType),
		Reader:   bytes.NewReader(audio),
		Language: language.Code(),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	return resp.Text, nil
}
