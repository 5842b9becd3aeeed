// Package speech converts between audio and text through external providers
// and keeps the resulting audio artifacts in object storage.
package speech

import (
	"context"
	"errors"
	"fmt"
	"jarvis-backend/internal/libraries"
	"jarvis-backend/internal/models"
	"log"
	"strings"
)

var (
	ErrEmptyAudio      = errors.New("audio is empty")
	ErrEmptyTranscript = errors.New("transcription returned no text")
	ErrEmptyText       = errors.New("text is empty")
)

// Transcriber turns audio into text. contentType names the recording format.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string, language models.Language) (string, error)
}

// Audio is synthesized speech ready for upload.
type Audio struct {
	Data        []byte
	ContentType string
	Ext         string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, language models.Language) (*Audio, error)
}

type Bridge struct {
	transcriber Transcriber
	synthesizer Synthesizer
	storage     libraries.ObjectStorage
}

func NewBridge(transcriber Transcriber, synthesizer Synthesizer, storage libraries.ObjectStorage) *Bridge {
	return &Bridge{
		transcriber: transcriber,
		synthesizer: synthesizer,
		storage:     storage,
	}
}

// Transcribe turns recorded audio into text; the chat language selects the decoding locale.
func (b *Bridge) Transcribe(ctx context.Context, audio []byte, contentType string, language models.Language) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	text, err := b.transcriber.Transcribe(ctx, audio, contentType, language)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// Synthesize voices the text and stores it under the user's audio folder.
func (b *Bridge) Synthesize(ctx context.Context, userID uint, text string, language models.Language) (*libraries.StoredObject, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	audio, err := b.synthesizer.Synthesize(ctx, text, language)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	objectPath, err := b.storage.Upload(ctx, libraries.FolderAudios, userID, "speech"+audio.Ext, audio.ContentType, audio.Data)
	if err != nil {
		return nil, fmt.Errorf("upload synthesized audio: %w", err)
	}
	log.Printf("[Speech] stored %d bytes of audio for user %d at %s", len(audio.Data), userID, objectPath)
	return &libraries.StoredObject{Path: objectPath, URL: b.storage.URL(objectPath)}, nil
}

// StoreRecording keeps the user's inbound voice input.
func (b *Bridge) StoreRecording(ctx context.Context, userID uint, audio []byte, contentType string) (*libraries.StoredObject, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	if contentType == "" {
		contentType = "audio/webm"
	}
	objectPath, err := b.storage.Upload(ctx, libraries.FolderRecordings, userID, "recording"+recordingExt(contentType), contentType, audio)
	if err != nil {
		return nil, fmt.Errorf("upload recording: %w", err)
	}
	return &libraries.StoredObject{Path: objectPath, URL: b.storage.URL(objectPath)}, nil
}

func recordingExt(contentType string) string {
	switch strings.SplitN(contentType, ";", 2)[0] {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	default:
		return ".webm"
	}
}
