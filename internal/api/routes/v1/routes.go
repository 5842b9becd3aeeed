package v1

import (
	"jarvis-backend/internal/api"
	"jarvis-backend/internal/auth"
	"jarvis-backend/internal/handlers"
	"jarvis-backend/internal/jarvis/workflow"
	"jarvis-backend/internal/libraries"
	"jarvis-backend/internal/repo"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators the routes are built from.
type Deps struct {
	DB        *gorm.DB
	Users     repo.UserRepoInterface
	Workflow  *workflow.Workflow
	Hub       *libraries.Hub
	JWTSecret string
	TokenTTL  time.Duration
}

// RegisterRoot mounts the unversioned endpoints: probes and the socket.
func RegisterRoot(app *fiber.App, deps Deps) {
	registerHealth(app, deps)

	validate := func(token string) (uint, error) {
		return auth.ParseAccessToken(token, deps.JWTSecret)
	}
	app.Get("/ws", libraries.WebSocketHandler(deps.Hub, deps.Workflow, validate))
}

func RegisterRoutes(r fiber.Router, deps Deps) {
	registerAuth(r, deps)

	// JWT-protected routes
	protected := r.Group("", api.Auth(deps.JWTSecret))
	registerChat(protected, deps)
	registerSpeech(protected, deps)
}

func registerHealth(r fiber.Router, deps Deps) {
	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
}

func registerAuth(r fiber.Router, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWTSecret, deps.TokenTTL)
	r.Post("/auth/login", api.RateLimit(10, time.Minute), authHandler.Login)
}
