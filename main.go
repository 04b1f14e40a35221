package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	chromem "github.com/philippgille/chromem-go"

	"github.com/siraa-ai/siraa-backend/database"
	"github.com/siraa-ai/siraa-backend/internal/agent"
	"github.com/siraa-ai/siraa-backend/internal/jobs"
	"github.com/siraa-ai/siraa-backend/internal/models"
	"github.com/siraa-ai/siraa-backend/internal/retrieval"
	"github.com/siraa-ai/siraa-backend/internal/routes"
	"github.com/siraa-ai/siraa-backend/internal/services"
	"github.com/siraa-ai/siraa-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}

		log.Printf("🔍 TWILIO_ACCOUNT_SID exists: %v", os.Getenv("TWILIO_ACCOUNT_SID") != "")
		log.Printf("🔍 ANTHROPIC_API_KEY exists: %v", os.Getenv("ANTHROPIC_API_KEY") != "")
		log.Printf("🔍 OPENAI_API_KEY exists: %v", os.Getenv("OPENAI_API_KEY") != "")
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		log.Println("⚠️  ANTHROPIC_API_KEY not set - agent replies will fail")
	}

	// Initialize the property catalog
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory catalog (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		if err := database.DB.AutoMigrate(&models.Property{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL catalog storage")
	}

	// Initialize the vector stores
	var vectorDB *chromem.DB
	if dir := os.Getenv("VECTOR_STORE_DIR"); dir != "" {
		var err error
		vectorDB, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			log.Fatal("Failed to open vector store:", err)
		}
		log.Printf("📦 Using persistent vector store at %s", dir)
	} else {
		vectorDB = chromem.NewDB()
		log.Println("📦 Using in-memory vector store")
	}

	embed := retrieval.NewEmbeddingFunc()

	propertyIndex, err := retrieval.NewPropertyIndex(vectorDB, store, embed)
	if err != nil {
		log.Fatal("Failed to create property index:", err)
	}

	faqIndex, err := retrieval.NewFAQIndex(vectorDB, faqDocumentPaths(), embed)
	if err != nil {
		log.Fatal("Failed to create FAQ index:", err)
	}

	buildCtx, cancelBuild := context.WithTimeout(context.Background(), 10*time.Minute)
	if err := propertyIndex.Build(buildCtx, false); err != nil {
		log.Printf("⚠️  Property index build failed: %v", err)
	}
	if err := faqIndex.Build(buildCtx); err != nil {
		log.Printf("⚠️  FAQ index build failed: %v", err)
	}
	cancelBuild()

	// Initialize the agent
	anthropicClient := anthropic.NewClient()
	knowledge := agent.NewKnowledge(propertyIndex, faqIndex, store)
	var agentOpts []agent.Option
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		agentOpts = append(agentOpts, agent.WithModel(anthropic.Model(model)))
	}
	engine := agent.NewEngine(&anthropicClient, knowledge, agentOpts...)

	// Initialize outbound messaging
	var sender services.MessageSender
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio service not initialized: %v", err)
		sender = services.LoggingSender{}
	} else {
		sender = twilioService
		log.Println("✅ Twilio service initialized")
	}

	// Initialize sessions and the orchestration service
	sessionManager := services.NewSessionManager(sessionTTL())
	whatsappService := services.NewWhatsAppService(sessionManager, engine, sender)

	// Optional periodic reindex so catalog updates become searchable
	var reindexJob *jobs.ReindexJob
	if interval := reindexInterval(); interval > 0 {
		reindexJob = jobs.NewReindexJob(propertyIndex, interval)
		reindexJob.Start()
	}

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Siraa WhatsApp Concierge v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Setup routes
	routes.SetupRoutes(app, store, sessionManager, whatsappService)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		if reindexJob != nil {
			reindexJob.Stop()
		}
		sessionManager.Stop()
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 Siraa WhatsApp Concierge starting on port %s", port)
	log.Printf("📊 Catalog: %s", getStorageType())
	log.Printf("🏠 Properties indexed: %d", propertyIndex.Count())
	log.Printf("📚 FAQ chunks indexed: %d", faqIndex.Count())
	log.Printf("📱 WhatsApp: %s", getWhatsAppStatus())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func faqDocumentPaths() []string {
	raw := os.Getenv("FAQ_DOCUMENT_PATHS")
	if raw == "" {
		raw = "Siraa_overview.txt,real_estate_101_content.txt"
	}
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// sessionTTL reads the idle session expiry; 0 keeps sessions for the
// process lifetime.
func sessionTTL() time.Duration {
	minutes, err := strconv.Atoi(os.Getenv("SESSION_TTL_MINUTES"))
	if err != nil || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}

func reindexInterval() time.Duration {
	minutes, err := strconv.Atoi(os.Getenv("REINDEX_INTERVAL_MINUTES"))
	if err != nil || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getWhatsAppStatus() string {
	if os.Getenv("TWILIO_ACCOUNT_SID") == "" {
		return "Not configured"
	}
	return "Configured"
}
