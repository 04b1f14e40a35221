package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/siraa-ai/siraa-backend/internal/handlers"
	"github.com/siraa-ai/siraa-backend/internal/middleware"
	"github.com/siraa-ai/siraa-backend/internal/services"
	"github.com/siraa-ai/siraa-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, sessions *services.SessionManager, whatsappService *services.WhatsAppService) {
	whatsappHandler := handlers.NewWhatsAppHandler(whatsappService)
	propertyHandler := handlers.NewPropertyHandler(store)
	sessionHandler := handlers.NewSessionHandler(sessions)
	healthHandler := handlers.NewHealthHandler("1.0.0")

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to the Siraa WhatsApp Concierge!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":        "/health",
				"webhook":       "/webhook/whatsapp",
				"test_whatsapp": "/test/whatsapp",
				"properties":    "/api/properties",
				"sessions":      "/api/sessions",
			},
		})
	})

	// Health check
	app.Get("/health", healthHandler.Check)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// WhatsApp webhook - ENVIRONMENT-AWARE VALIDATION
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: Skip validation for ngrok
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		if os.Getenv("ENVIRONMENT") == "development" {
			println("⚠️  WhatsApp webhook validation DISABLED for development")
		}
	} else {
		// Production: Validate webhook signature
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)

	// ========== API ROUTES ==========
	api := app.Group("/api")
	api.Get("/properties", propertyHandler.ListNames)
	api.Get("/sessions", sessionHandler.Stats)
	api.Delete("/sessions/:phone", sessionHandler.Clear)
}
