package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/siraa-ai/siraa-backend/internal/services"
)

// SessionHandler exposes the session maintenance surface.
type SessionHandler struct {
	sessions *services.SessionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Clear drops the conversation state for a phone number. The response
// reports whether a session existed.
func (h *SessionHandler) Clear(c *fiber.Ctx) error {
	phone := c.Params("phone")
	if phone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "phone number required",
		})
	}

	existed := h.sessions.Clear(phone)
	log.Printf("🧹 Session clear requested for %s (existed: %v)", phone, existed)

	return c.JSON(fiber.Map{
		"phone":   phone,
		"existed": existed,
	})
}

// Stats returns session statistics for monitoring.
func (h *SessionHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.sessions.GetSessionStats())
}
