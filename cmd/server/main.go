package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rakshaapp/raksha-api/internal/config"
	"github.com/rakshaapp/raksha-api/internal/handler"
	"github.com/rakshaapp/raksha-api/internal/middleware"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/rakshaapp/raksha-api/internal/repository"
	"github.com/rakshaapp/raksha-api/internal/service"
	"github.com/rakshaapp/raksha-api/internal/ws"
	"github.com/rakshaapp/raksha-api/migrations"
	"github.com/rakshaapp/raksha-api/pkg/auth"
	"github.com/rakshaapp/raksha-api/pkg/classifier"
	"github.com/rakshaapp/raksha-api/pkg/messaging"
	"github.com/rakshaapp/raksha-api/pkg/notification"
	"github.com/rakshaapp/raksha-api/pkg/storage"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           Raksha API
// @version         1.0
// @description     Personal safety backend: SOS alerts, Guardian Mode audio classification, WhatsApp contact dispatch.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@raksha.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting Raksha API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		// Fallback to AutoMigrate if migration files fail
		if err := db.AutoMigrate(
			&model.User{},
			&model.EmergencyContact{},
			&model.OTPCode{},
			&model.UserDevice{},
			&model.GuardianLog{},
			&model.Alert{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== WhatsApp (Twilio) ====================
	messenger := messaging.NewTwilio(messaging.Config{
		AccountSID:  cfg.Twilio.AccountSID,
		AuthToken:   cfg.Twilio.AuthToken,
		From:        cfg.Twilio.WhatsAppFrom,
		CountryCode: cfg.Twilio.CountryCode,
	})
	log.Printf("📱 Twilio WhatsApp configured: from=%s", cfg.Twilio.WhatsAppFrom)

	// ==================== MinIO Storage ====================
	minioStorage, err := storage.NewMinIO(storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		log.Fatalf("❌ MinIO not available: %v (audio storage is required)", err)
	}
	log.Println("✅ Connected to MinIO")

	// ==================== Initialize Layers ====================
	// JWT Manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Push notifications (optional; nil-safe when credentials are absent)
	notifier, err := notification.NewNotificationService(cfg.FCM.CredentialsFile, userRepo)
	if err != nil {
		log.Printf("⚠️  FCM not available: %v (push notifications disabled)", err)
	}

	// Audio classifier subprocess pool
	audioClassifier := classifier.New(classifier.Config{
		Python:        cfg.Classifier.Python,
		Script:        cfg.Classifier.Script,
		Timeout:       cfg.Classifier.Timeout,
		MaxConcurrent: cfg.Classifier.MaxConcurrent,
	})

	// Services
	authService := service.NewAuthService(userRepo, otpRepo, jwtManager, messenger, rdb)
	guardianService := service.NewGuardianService(guardianRepo, hub)
	dispatcher := service.NewDispatcher(messenger, cfg.Alert.ContactTimeout, cfg.Alert.DispatchTimeout)
	alertService := service.NewAlertService(alertRepo, userRepo, guardianService, minioStorage, audioClassifier, dispatcher, notifier, hub, cfg.Alert)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	guardianHandler := handler.NewGuardianHandler(guardianService)
	sosHandler := handler.NewSOSHandler(alertService)
	webhookHandler := handler.NewWebhookHandler(alertService, cfg.Twilio.CountryCode)
	wsHandler := handler.NewWSHandler(hub, jwtManager)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger configuration
	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")

	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "raksha-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/verify-otp", authHandler.VerifyOTP)
			authGroup.POST("/resend-otp", authHandler.ResendOTP)
		}

		// Inbound WhatsApp replies from Twilio (public, form-encoded)
		api.POST("/webhook/inbound-message", webhookHandler.InboundMessage)

		// False-alarm votes also arrive from contacts without accounts
		api.POST("/sos/false-vote", sosHandler.FalseVote)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, rdb))
		{
			// Auth / profile
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/users/:id", authHandler.GetProfile)
			protected.PUT("/users/:id", authHandler.UpdateProfile)
			protected.POST("/users/devices", authHandler.RegisterDevice)

			// Guardian Mode
			protected.POST("/guardian/toggle", guardianHandler.Toggle)
			protected.GET("/guardian/status/:userId", guardianHandler.Status)

			// SOS alerts
			protected.POST("/sos/trigger", sosHandler.Trigger)
			protected.POST("/sos/classify", sosHandler.Classify)
			protected.POST("/sos/resend", sosHandler.Resend)
			protected.GET("/sos/user/:userId", sosHandler.History)
		}
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 Raksha API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	hubCancel()
	log.Println("✅ Server exited gracefully")
}
