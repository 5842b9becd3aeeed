package v1

import (
	"jarvis-backend/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

func registerSpeech(r fiber.Router, deps Deps) {
	speechHandler := handlers.NewSpeechHandler(deps.Workflow)

	r.Post("/speech/:id/to-text", speechHandler.SpeechToText)
	r.Post("/speech/:id", speechHandler.TextToSpeech)
}
