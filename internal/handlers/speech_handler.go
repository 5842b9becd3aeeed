package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type SpeechWorkflow interface {
	Transcribe(ctx context.Context, userID, chatID uint, audio []byte, contentType string) (string, error)
	TextToSpeech(ctx context.Context, userID, chatID uint, text string) (string, error)
}

type SpeechHandler struct {
	workflow SpeechWorkflow
}

func NewSpeechHandler(wf SpeechWorkflow) *SpeechHandler {
	return &SpeechHandler{workflow: wf}
}

// SpeechToText transcribes an uploaded audio/* file in the chat's language.
func (h *SpeechHandler) SpeechToText(c *fiber.Ctx) error {
	chatID, ok := chatIDParam(c)
	if !ok {
		return badRequest(c, "Invalid chat ID")
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		return badRequest(c, "Audio file is required")
	}
	contentType := fh.Header.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(contentType, "audio/") {
		return badRequest(c, "Only audio files are allowed")
	}
	data, err := readFormFile(fh)
	if err != nil {
		return badRequest(c, "Failed to read audio file")
	}

	text, err := h.workflow.Transcribe(c.UserContext(), currentUserID(c), chatID, data, contentType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"text": text})
}

func (h *SpeechHandler) TextToSpeech(c *fiber.Ctx) error {
	chatID, ok := chatIDParam(c)
	if !ok {
		return badRequest(c, "Invalid chat ID")
	}
	var dto struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}

	url, err := h.workflow.TextToSpeech(c.UserContext(), currentUserID(c), chatID, dto.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"audio_source": url})
}
