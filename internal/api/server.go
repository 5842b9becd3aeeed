package api

import (
	"errors"
	"jarvis-backend/internal/apperr"
	"jarvis-backend/internal/config"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// bodyLimit covers five photos or one voice recording per request.
const bodyLimit = 25 * 1024 * 1024

func NewServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		AppName:      "Jarvis Backend",
		BodyLimit:    bodyLimit,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	return app
}

// ErrorHandler maps fiber and application errors to a status and a body
// that never carries the underlying cause.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := apperr.KindOf(err).Status()
	message := apperr.PublicMessage(err)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	log.Printf("Error: %s %s -> %d: %v", c.Method(), c.Path(), code, err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

func StartServer(app *fiber.App, port string) error {
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 Server starting on port %s\n", port)
	return app.Listen(":" + port)
}
