package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/siraa-ai/siraa-backend/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	service *services.WhatsAppService
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(service *services.WhatsAppService) *WhatsAppHandler {
	return &WhatsAppHandler{service: service}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid          string `form:"MessageSid"`
	AccountSid          string `form:"AccountSid"`
	MessagingServiceSid string `form:"MessagingServiceSid"`
	From                string `form:"From"` // WhatsApp number (whatsapp:+971501234567)
	To                  string `form:"To"`   // Your Twilio number
	Body                string `form:"Body"` // Message text
	NumMedia            string `form:"NumMedia"`
	MediaUrl0           string `form:"MediaUrl0"`
	MediaContentType0   string `form:"MediaContentType0"`
}

// HandleWebhook processes incoming WhatsApp messages. Twilio expects a 2xx
// regardless of business outcome, so malformed payloads and status callbacks
// are acknowledged without a reply.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("⚠️  Ignoring malformed webhook payload: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	// Status updates and delivery receipts have no body
	if payload.Body == "" || payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	body := strings.TrimSpace(payload.Body)

	log.Printf("📱 WhatsApp message from %s: %s", from, body)
	h.service.HandleInbound(c.UserContext(), from, body)

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload is the JSON shape of the development endpoint.
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes test messages (for development) and returns
// the reply inline instead of sending it through Twilio.
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)

	reply := h.service.Reply(c.UserContext(), payload.From, payload.Message)

	return c.JSON(fiber.Map{
		"success":   true,
		"response":  reply.Text,
		"media_url": reply.MediaURL,
	})
}
