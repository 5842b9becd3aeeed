// Package workflow runs chat turns: access checks, attachment upload, history,
// completion, reply audio and the paired message write.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"jarvis-backend/internal/apperr"
	"jarvis-backend/internal/config"
	"jarvis-backend/internal/jarvis/agents"
	"jarvis-backend/internal/libraries"
	"jarvis-backend/internal/models"
	"jarvis-backend/internal/repo"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

// MaxSpeechText bounds text-to-speech input.
const MaxSpeechText = 4000

// SpeechBridge is the part of speech.Bridge the turns depend on.
type SpeechBridge interface {
	Transcribe(ctx context.Context, audio []byte, contentType string, language models.Language) (string, error)
	Synthesize(ctx context.Context, userID uint, text string, language models.Language) (*libraries.StoredObject, error)
	StoreRecording(ctx context.Context, userID uint, audio []byte, contentType string) (*libraries.StoredObject, error)
}

// discardTimeout bounds the cleanup of a failed turn's uploads.
const discardTimeout = 10 * time.Second

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type TurnInput struct {
	UserID uint
	ChatID uint
	Text   string
	Files  []Attachment
}

type VoiceInput struct {
	UserID      uint
	ChatID      uint
	Audio       []byte
	ContentType string
}

// TurnResult holds the two rows written for a turn.
type TurnResult struct {
	Message *models.Message `json:"message"`
	Reply   *models.Message `json:"reply"`
}

type Options struct {
	HistoryLimit int
	TurnTimeout  time.Duration
}

type Workflow struct {
	users   repo.UserRepoInterface
	chats   repo.ChatRepoInterface
	agent   *agents.Agent
	speech  SpeechBridge
	storage libraries.ObjectStorage
	locks   *chatLocks

	historyLimit int
	turnTimeout  time.Duration
}

func NewWorkflow(users repo.UserRepoInterface, chats repo.ChatRepoInterface, agent *agents.Agent, speech SpeechBridge, storage libraries.ObjectStorage, opts Options) *Workflow {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 2 * time.Minute
	}
	return &Workflow{
		users:        users,
		chats:        chats,
		agent:        agent,
		speech:       speech,
		storage:      storage,
		locks:        newChatLocks(),
		historyLimit: opts.HistoryLimit,
		turnTimeout:  opts.TurnTimeout,
	}
}

type completeFunc func(ctx context.Context, req agents.Request) (string, error)

// CheckAccess resolves the chat for an active user that owns it.
func (w *Workflow) CheckAccess(ctx context.Context, userID, chatID uint) (*models.Chat, error) {
	user, err := w.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("User not found")
		}
		return nil, apperr.Internal("Failed to load user", err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("User is inactive")
	}

	chat, err := w.chats.FindByIDAndUser(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Chat not found")
		}
		return nil, apperr.Internal("Failed to load chat", err)
	}
	return chat, nil
}

// CheckTurn runs every precondition of a text turn without side effects.
func (w *Workflow) CheckTurn(ctx context.Context, in TurnInput) (*models.Chat, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, apperr.Invalid("Text cannot be empty")
	}
	chat, err := w.CheckAccess(ctx, in.UserID, in.ChatID)
	if err != nil {
		return nil, err
	}
	if len(in.Files) > config.MaxAttachments {
		return nil, apperr.QuotaExceeded(fmt.Sprintf(
			"Unable to process request. The maximum allowed number of files (%d) has been exceeded", config.MaxAttachments))
	}
	return chat, nil
}

func (w *Workflow) SubmitTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	ctx, cancel := context.WithTimeout(ctx, w.turnTimeout)
	defer cancel()

	chat, err := w.CheckTurn(ctx, in)
	if err != nil {
		return nil, err
	}
	return w.runTurn(ctx, chat, in, nil, w.batch)
}

// StreamTurn delivers reply deltas through emit as they arrive. An emit error
// stops the upstream call and nothing is written.
func (w *Workflow) StreamTurn(ctx context.Context, in TurnInput, emit func(delta string) error) (*TurnResult, error) {
	ctx, cancel := context.WithTimeout(ctx, w.turnTimeout)
	defer cancel()

	chat, err := w.CheckTurn(ctx, in)
	if err != nil {
		return nil, err
	}
	return w.runTurn(ctx, chat, in, nil, w.streaming(emit))
}

// SubmitVoiceTurn transcribes the recording in the chat language and answers it
// as a text turn. The recording becomes the user message's audio.
func (w *Workflow) SubmitVoiceTurn(ctx context.Context, in VoiceInput) (*TurnResult, error) {
	ctx, cancel := context.WithTimeout(ctx, w.turnTimeout)
	defer cancel()

	if len(in.Audio) == 0 {
		return nil, apperr.Invalid("Audio is required")
	}
	chat, err := w.CheckAccess(ctx, in.UserID, in.ChatID)
	if err != nil {
		return nil, err
	}

	text, err := w.speech.Transcribe(ctx, in.Audio, in.ContentType, chat.Language)
	if err != nil {
		return nil, classify(ctx, "Failed to transcribe audio", err)
	}
	recording, err := w.speech.StoreRecording(ctx, in.UserID, in.Audio, in.ContentType)
	if err != nil {
		return nil, classify(ctx, "Failed to store recording", err)
	}
	log.Printf("[Workflow] chat %d: transcribed %d bytes of audio into %d characters", chat.ID, len(in.Audio), utf8.RuneCountInString(text))

	return w.runTurn(ctx, chat, TurnInput{UserID: in.UserID, ChatID: in.ChatID, Text: text}, recording, w.batch)
}

func (w *Workflow) GetHistory(ctx context.Context, userID, chatID uint) ([]models.Message, error) {
	chat, err := w.CheckAccess(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := w.chats.GetMessages(ctx, chat.ID)
	if err != nil {
		return nil, apperr.Internal("Failed to load messages", err)
	}
	if messages == nil {
		return []models.Message{}, nil
	}
	return messages, nil
}

// Transcribe converts audio to text in the chat's language without touching the conversation.
func (w *Workflow) Transcribe(ctx context.Context, userID, chatID uint, audio []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.turnTimeout)
	defer cancel()

	if len(audio) == 0 {
		return "", apperr.Invalid("Audio is required")
	}
	chat, err := w.CheckAccess(ctx, userID, chatID)
	if err != nil {
		return "", err
	}
	text, err := w.speech.Transcribe(ctx, audio, contentType, chat.Language)
	if err != nil {
		return "", classify(ctx, "Failed to transcribe audio", err)
	}
	return text, nil
}

// TextToSpeech voices text in the chat's language and returns the stored audio URL.
func (w *Workflow) TextToSpeech(ctx context.Context, userID, chatID uint, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.turnTimeout)
	defer cancel()

	if strings.TrimSpace(text) == "" {
		return "", apperr.Invalid("Text cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxSpeechText {
		return "", apperr.Invalid(fmt.Sprintf("Text must be at most %d characters", MaxSpeechText))
	}
	chat, err := w.CheckAccess(ctx, userID, chatID)
	if err != nil {
		return "", err
	}
	audio, err := w.speech.Synthesize(ctx, userID, text, chat.Language)
	if err != nil {
		return "", classify(ctx, "Failed to synthesize speech", err)
	}
	return audio.URL, nil
}

// runTurn holds the chat lock for the whole turn. Objects uploaded for a turn
// that fails are deleted again, the recording of a voice turn included.
func (w *Workflow) runTurn(ctx context.Context, chat *models.Chat, in TurnInput, recording *libraries.StoredObject, complete completeFunc) (res *TurnResult, err error) {
	var stored []libraries.StoredObject
	if recording != nil {
		stored = append(stored, *recording)
	}
	defer func() {
		if err != nil {
			w.discard(ctx, chat.ID, stored)
		}
	}()

	unlock, err := w.locks.Lock(ctx, chat.ID)
	if err != nil {
		return nil, classify(ctx, "Chat is busy", err)
	}
	defer unlock()

	photos, err := w.uploadFiles(ctx, in.UserID, in.Files)
	stored = append(stored, photos...)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		urls = append(urls, p.URL)
	}

	history, err := w.chats.GetChatHistory(ctx, chat.ID, w.historyLimit)
	if err != nil {
		return nil, apperr.Internal("Failed to load chat history", err)
	}

	reply, err := complete(ctx, agents.Request{
		Language:  chat.Language,
		Title:     chat.Title,
		Text:      in.Text,
		ImageURLs: urls,
		History:   history,
	})
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, apperr.Upstream("Failed to get AI reply", errors.New("empty completion"))
	}

	audio, err := w.speech.Synthesize(ctx, in.UserID, reply, chat.Language)
	if err != nil {
		return nil, classify(ctx, "Failed to synthesize reply", err)
	}
	stored = append(stored, *audio)

	human := &models.Message{
		ChatID: chat.ID,
		UserID: in.UserID,
		Text:   in.Text,
	}
	if recording != nil {
		human.AudioSource = &recording.URL
	}
	if err := human.SetAttachmentURLs(urls); err != nil {
		return nil, apperr.Internal("Failed to encode attachments", err)
	}
	ai := &models.Message{
		ChatID:      chat.ID,
		UserID:      in.UserID,
		AI:          true,
		Text:        reply,
		AudioSource: &audio.URL,
	}
	if err := w.chats.CreateHumanAndAiMessages(ctx, human, ai); err != nil {
		return nil, apperr.Internal("Failed to save messages", err)
	}

	log.Printf("[Workflow] chat %d: stored messages %d/%d (%d attachments)", chat.ID, human.ID, ai.ID, len(urls))
	return &TurnResult{Message: human, Reply: ai}, nil
}

// uploadFiles stores attachments one at a time in request order. On failure
// it still returns what was uploaded before the error.
func (w *Workflow) uploadFiles(ctx context.Context, userID uint, files []Attachment) ([]libraries.StoredObject, error) {
	uploaded := make([]libraries.StoredObject, 0, len(files))
	for _, f := range files {
		objectPath, err := w.storage.Upload(ctx, libraries.FolderPhotos, userID, f.Name, f.ContentType, f.Data)
		if err != nil {
			return uploaded, classify(ctx, "Failed to upload file", err)
		}
		uploaded = append(uploaded, libraries.StoredObject{Path: objectPath, URL: w.storage.URL(objectPath)})
	}
	return uploaded, nil
}

// discard deletes objects no message will reference. It outlives the turn
// deadline, and failures are only logged.
func (w *Workflow) discard(ctx context.Context, chatID uint, objects []libraries.StoredObject) {
	if len(objects) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	for _, obj := range objects {
		if err := w.storage.Delete(ctx, obj.Path); err != nil {
			log.Printf("[Workflow] chat %d: failed to discard %s: %v", chatID, obj.Path, err)
		}
	}
}

func (w *Workflow) batch(ctx context.Context, req agents.Request) (string, error) {
	reply, err := w.agent.ProcessRequest(ctx, req)
	if err != nil {
		return "", classify(ctx, "Failed to get AI reply", err)
	}
	return reply, nil
}

func (w *Workflow) streaming(emit func(string) error) completeFunc {
	return func(ctx context.Context, req agents.Request) (string, error) {
		var sb strings.Builder
		for delta, err := range w.agent.ProcessRequestStream(ctx, req) {
			if err != nil {
				return "", classify(ctx, "Failed to get AI reply", err)
			}
			sb.WriteString(delta)
			if err := emit(delta); err != nil {
				// leaving the loop stops the upstream stream
				return "", apperr.Internal("Stream consumer went away", err)
			}
		}
		return sb.String(), nil
	}
}

// classify wraps provider failures as Upstream, turning a hit deadline into a timeout.
func classify(ctx context.Context, message string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperr.Upstream("Request timed out", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return apperr.Internal("Request cancelled", err)
	}
	return apperr.Upstream(message, err)
}
