package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/siraa-ai/siraa-backend/internal/storage"
)

// PropertyHandler exposes the read-only catalog surface.
type PropertyHandler struct {
	store storage.Store
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(store storage.Store) *PropertyHandler {
	return &PropertyHandler{store: store}
}

// ListNames returns the names of all known properties.
func (h *PropertyHandler) ListNames(c *fiber.Ctx) error {
	names, err := h.store.ListPropertyNames()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list properties",
		})
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(fiber.Map{
		"properties": names,
		"count":      len(names),
	})
}
