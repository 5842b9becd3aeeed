package handlers

import (
	"errors"
	"jarvis-backend/internal/auth"
	"jarvis-backend/internal/repo"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	users     repo.UserRepoInterface
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthHandler(users repo.UserRepoInterface, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Login accepts an email or username with a password and returns an access token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var dto struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return badRequest(c, "Invalid request body")
	}
	dto.Login = strings.TrimSpace(dto.Login)
	if dto.Login == "" || dto.Password == "" {
		return badRequest(c, "Login and password are required")
	}

	user, err := h.users.FindByEmailOrUsername(c.UserContext(), dto.Login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}
		log.Println(err, "Error loading user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to login"})
	}
	if !auth.ComparePassword(user.PasswordHash, dto.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if !user.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User is inactive"})
	}

	token, err := auth.NewAccessToken(user.ID, h.jwtSecret, h.tokenTTL)
	if err != nil {
		log.Println(err, "Error signing token")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to login"})
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokenTTL.Seconds()),
		"user":         user,
	})
}
