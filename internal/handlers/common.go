package handlers

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the fiber.Ctx local set by the auth middleware.
const UserIDKey = "user_id"

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(UserIDKey).(uint)
	return id
}

func chatIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
