package workflow

import (
	"context"
	"jarvis-backend/internal/apperr"
	"jarvis-backend/internal/libraries"
	"log"
)

// ProcessChatMessage runs a streamed turn for a socket client. Deltas go out as
// chat_response frames; the stored pair goes out as chat_completed.
func (w *Workflow) ProcessChatMessage(ctx context.Context, hub *libraries.Hub, client *libraries.Client, payload *libraries.ChatMessagePayload) {
	if err := libraries.SendEventType(hub, client, libraries.WebSocketMessageTypeChatStarting); err != nil {
		return
	}

	in := TurnInput{UserID: client.UserID, ChatID: payload.ChatID, Text: payload.Message}
	result, err := w.StreamTurn(ctx, in, func(delta string) error {
		return libraries.SendChatMessageResponse(hub, client, libraries.WebSocketMessageTypeChatResponse, &libraries.ChatMessageResponsePayload{
			ChatID:  payload.ChatID,
			Message: delta,
		})
	})
	if err != nil {
		LogFailure("socket turn", err)
		if ctx.Err() == nil {
			_ = libraries.SendErrorMessage(hub, client, apperr.PublicMessage(err))
		}
		return
	}

	completed := &libraries.ChatMessageResponsePayload{
		ChatID:         payload.ChatID,
		Message:        result.Reply.Text,
		HumanMessageID: result.Message.ID,
		AiMessageID:    result.Reply.ID,
	}
	if result.Reply.AudioSource != nil {
		completed.AudioSource = *result.Reply.AudioSource
	}
	if err := libraries.SendChatMessageResponse(hub, client, libraries.WebSocketMessageTypeChatCompleted, completed); err != nil {
		log.Printf("[Workflow] chat %d: completed turn could not be delivered: %v", payload.ChatID, err)
	}
}

// LogFailure records the originating error behind a client-facing one.
func LogFailure(op string, err error) {
	log.Printf("[Workflow] %s failed (%s): %v", op, apperr.KindOf(err), err)
}
