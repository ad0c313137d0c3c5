package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"

	"github.com/minechat/minechat-be/internal/core/admin"
	"github.com/minechat/minechat-be/internal/core/auth"
	"github.com/minechat/minechat-be/internal/core/llm"
	"github.com/minechat/minechat-be/internal/core/maintenance"
	"github.com/minechat/minechat-be/internal/core/messenger"
	"github.com/minechat/minechat-be/internal/core/secrets"
	"github.com/minechat/minechat-be/internal/modules/inbox/handlers"
	"github.com/minechat/minechat-be/internal/modules/inbox/repositories"
	"github.com/minechat/minechat-be/internal/modules/inbox/services"
	"github.com/minechat/minechat-be/internal/shared/config"
	"github.com/minechat/minechat-be/internal/shared/database"
	"github.com/minechat/minechat-be/internal/shared/logger"
)

// @title Minechat API
// @version 1.0
// @description Channel connection and conversation synchronization API for the Minechat dashboard
// @contact.name API Support
// @contact.email support@minechat.ai
// @license.name MIT
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load config
	cfg := config.LoadConfig()
	logger.Init()
	logger.Info("configuration loaded", map[string]interface{}{"env": cfg.Env, "llm_provider": cfg.LLMProvider})
	log.Printf("🚀 Starting minechat api on port %s", cfg.Port)

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer database.Close(db)

	// Init repositories
	tenantRepo := repositories.NewTenantRepo(db)
	connectionRepo := repositories.NewConnectionRepo(db)
	conversationRepo := repositories.NewConversationRepo(db)
	eventRepo := repositories.NewEventRepo(db)
	profileRepo := repositories.NewProfileRepo(db)
	businessRepo := repositories.NewBusinessRepo(db)
	userRepo := auth.NewUserRepo(db)

	// Credential sealing for stored provider tokens
	secretStore, err := secrets.NewSealedStore(cfg.CredentialSealKey)
	if err != nil {
		log.Fatalf("❌ Failed to init credential store: %v", err)
	}

	// Graph API client
	graphClient, err := messenger.NewClient(messenger.ClientConfig{
		AppID:       cfg.FacebookAppID,
		AppSecret:   cfg.FacebookAppSecret,
		RedirectURL: cfg.FacebookRedirectURL,
		APIVersion:  cfg.FacebookAPIVersion,
	})
	if err != nil {
		log.Fatalf("❌ Failed to init Graph API client: %v", err)
	}

	// Init LLM service (multi-provider support)
	llmService := llm.NewService(cfg)

	// Init auth
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	googleService := auth.NewGoogleOAuthService(cfg.GoogleClientID)
	authService := auth.NewService(userRepo, jwtService, googleService, tenantRepo)

	// Impersonation overlay
	overlay := admin.NewOverlay(tenantRepo)

	// Init services
	connectionService := services.NewConnectionService(connectionRepo, graphClient, secretStore)
	replyService := services.NewReplyService(conversationRepo, profileRepo, businessRepo, tenantRepo, llmService, connectionService)
	webhookService := services.NewWebhookService(
		cfg.WebhookVerifyToken, cfg.FacebookAppSecret,
		eventRepo, conversationRepo, connectionRepo, replyService,
	)

	// Init handlers
	authHandler := auth.NewHandler(authService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	connectionHandler := handlers.NewConnectionHandler(connectionService)
	conversationHandler := handlers.NewConversationHandler(conversationRepo)
	assistantHandler := handlers.NewAssistantHandler(profileRepo, tenantRepo)
	adminHandler := handlers.NewAdminHandler(overlay)

	// Maintenance scheduler (event retention, stale authorization cleanup)
	scheduler := maintenance.NewScheduler(eventRepo, connectionRepo)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start maintenance scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Minechat API",
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Swagger docs
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api/v1")

	// Webhook endpoints are provider-authenticated, never session-authenticated
	api.Get("/webhook/facebook", webhookHandler.Verify)
	api.Post("/webhook/facebook", webhookHandler.Receive)

	// Auth
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/google", authHandler.GoogleLogin)
	authGroup.Get("/me", auth.AuthMiddleware(jwtService), admin.ResolveIdentity(overlay), authHandler.Me)

	// Tenant dashboard routes: JWT, then overlay resolution, then role gate
	dashboard := api.Group("", auth.AuthMiddleware(jwtService), admin.ResolveIdentity(overlay), auth.RequireRole(auth.RoleTenant))

	connection := dashboard.Group("/connection/facebook")
	connection.Post("/start", connectionHandler.Start)
	connection.Get("/qr", connectionHandler.StartQR)
	connection.Get("/callback", connectionHandler.Callback)
	connection.Post("/select-page", connectionHandler.SelectPage)
	connection.Get("/", connectionHandler.Status)
	connection.Delete("/", connectionHandler.Disconnect)

	conversations := dashboard.Group("/conversations")
	conversations.Get("/", conversationHandler.List)
	conversations.Get("/unread-count", conversationHandler.UnreadCount)
	conversations.Post("/read-all", conversationHandler.MarkAllRead)
	conversations.Get("/:id/messages", conversationHandler.Messages)
	conversations.Post("/:id/read", conversationHandler.MarkRead)

	assistant := dashboard.Group("/assistant")
	assistant.Get("/profile", assistantHandler.Get)
	assistant.Put("/profile", assistantHandler.Save)
	assistant.Delete("/profile", assistantHandler.Reset)

	// Admin view-as-tenant: gated on the ORIGINAL role, so no tenant gate here
	adminGroup := api.Group("/admin", auth.AuthMiddleware(jwtService), admin.ResolveIdentity(overlay))
	adminGroup.Post("/view", adminHandler.StartView)
	adminGroup.Get("/view", adminHandler.ViewStatus)
	adminGroup.Delete("/view", adminHandler.StopView)

	// Graceful shutdown: let in-flight replies settle before exit
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down...")
		replyService.Wait()
		_ = app.Shutdown()
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}
