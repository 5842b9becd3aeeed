package handlers

import (
	"bufio"
	"context"
	"jarvis-backend/internal/apperr"
	"jarvis-backend/internal/jarvis/workflow"
	"jarvis-backend/internal/libraries"
	"jarvis-backend/internal/models"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type MessageWorkflow interface {
	CheckTurn(ctx context.Context, in workflow.TurnInput) (*models.Chat, error)
	SubmitTurn(ctx context.Context, in workflow.TurnInput) (*workflow.TurnResult, error)
	StreamTurn(ctx context.Context, in workflow.TurnInput, emit func(delta string) error) (*workflow.TurnResult, error)
	SubmitVoiceTurn(ctx context.Context, in workflow.VoiceInput) (*workflow.TurnResult, error)
	GetHistory(ctx context.Context, userID, chatID uint) ([]models.Message, error)
}

type MessageHandler struct {
	workflow MessageWorkflow
}

func NewMessageHandler(wf MessageWorkflow) *MessageHandler {
	return &MessageHandler{workflow: wf}
}

// parseTurn accepts either a JSON body {"text"} or a multipart form with text and files.
func parseTurn(c *fiber.Ctx, chatID uint) (workflow.TurnInput, error) {
	in := workflow.TurnInput{UserID: currentUserID(c), ChatID: chatID}

	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		var dto struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&dto); err != nil {
			return in, err
		}
		in.Text = dto.Text
		return in, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return in, err
	}
	if values := form.Value["text"]; len(values) > 0 {
		in.Text = values[0]
	}
	for _, fh := range form.File["files"] {
		data, err := readFormFile(fh)
		if err != nil {
			return in, err
		}
		in.Files = append(in.Files, workflow.Attachment{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Data:        data,
		})
	}
	return in, nil
}

func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	chatID, ok := chatIDParam(c)
	if !ok {
		return badRequest(c, "Invalid chat ID")
	}
	in, err := parseTurn(c, chatID)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.workflow.SubmitTurn(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// StreamMessage answers with text/event-stream. Preconditions are checked
// first so they still come back as plain error responses.
func (h *MessageHandler) StreamMessage(c *fiber.Ctx) error {
	chatID, ok := chatIDParam(c)
	if !ok {
		return badRequest(c, "Invalid chat ID")
	}
	in, err := parseTurn(c, chatID)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	if _, err := h.workflow.CheckTurn(c.UserContext(), in); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// the request ctx is recycled once the handler returns, so the turn gets its own
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sse := libraries.NewSSEWriter(w)
		result, err := h.workflow.StreamTurn(ctx, in, sse.Delta)
		if err != nil {
			workflow.LogFailure("stream turn", err)
			_ = sse.Event(libraries.SSEEventError, fiber.Map{
				"error":  apperr.PublicMessage(err),
				"status": apperr.KindOf(err).Status(),
			})
			return
		}
		if err := sse.Event(libraries.SSEEventDone, result); err != nil {
			log.Printf("[Handlers] chat %d: done event not delivered: %v", chatID, err)
		}
	}))
	return nil
}

func (h *MessageHandler) SendVoiceMessage(c *fiber.Ctx) error {
	chatID, ok := chatIDParam(c)
	if !ok {
		return badRequest(c, "Invalid chat ID")
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		return badRequest(c, "Audio file is required")
	}
	data, err := readFormFile(fh)
	if err != nil {
		return badRequest(c, "Failed to read audio file")
	}

	result, err := h.workflow.SubmitVoiceTurn(c.UserContext(), workflow.VoiceInput{
		UserID:      currentUserID(c),
		ChatID:      chatID,
		Audio:       data,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	chatID, ok := chatIDParam(c)
	if !ok {
		return badRequest(c, "Invalid chat ID")
	}
	messages, err := h.workflow.GetHistory(c.UserContext(), currentUserID(c), chatID)
	if err != nil {
		return err
	}
	return c.JSON(messages)
}
