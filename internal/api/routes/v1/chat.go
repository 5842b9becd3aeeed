package v1

import (
	"jarvis-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerChat(r fiber.Router, deps Deps) {
	messageHandler := handlers.NewMessageHandler(deps.Workflow)

	r.Post("/chats/:id/messages", messageHandler.SendMessage)
	r.Post("/chats/:id/messages/stream", messageHandler.StreamMessage)
	r.Post("/chats/:id/messages/voice", messageHandler.SendVoiceMessage)
	r.Get("/chats/:id/messages", messageHandler.GetMessages)
}
