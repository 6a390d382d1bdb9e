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
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/adapter"
	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/internal/config"
	classifiedsCron "github.com/homelet/service-classifieds/internal/cron"
	classifiedsEvents "github.com/homelet/service-classifieds/internal/events"
	"github.com/homelet/service-classifieds/internal/handler"
	"github.com/homelet/service-classifieds/internal/repository"
	"github.com/homelet/service-classifieds/internal/saga"
	"github.com/homelet/service-classifieds/internal/ws"
	"github.com/homelet/service-classifieds/pkg/auth"
	"github.com/homelet/service-classifieds/pkg/database"
	"github.com/homelet/service-classifieds/pkg/events"
	"github.com/homelet/service-classifieds/pkg/health"
	"github.com/homelet/service-classifieds/pkg/kafka"
	"github.com/homelet/service-classifieds/pkg/logger"
	"github.com/homelet/service-classifieds/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-classifieds")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-classifieds",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	db, err := database.Connect(dbConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.UserModel{},
			&repository.DeviceTokenModel{},
			&repository.PromoModel{},
			&repository.PlanModel{},
			&repository.UserSubscriptionModel{},
			&repository.ListingPaymentModel{},
			&repository.SubscriptionPaymentModel{},
			&repository.PropertyModel{},
			&repository.FavoriteModel{},
			&repository.MessageModel{},
			&repository.NotificationModel{},
		); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()

	// Initialize gateway and push adapters (mocks outside production)
	var gateway adapter.PaymentGateway
	if cfg.AppEnv == "production" {
		gateway = adapter.NewPaystackAdapter(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey, cfg.Gateway.Timeout, zapLogger)
	} else {
		gateway = adapter.NewMockPaymentGateway(zapLogger)
	}
	var push adapter.PushSender = adapter.NewExpoPushAdapter(cfg.Push.BaseURL, cfg.Push.Timeout, zapLogger)
	if cfg.Push.BaseURL == "" {
		push = adapter.NoopPushSender{}
	}

	// Initialize repositories
	userRepo := repository.NewGormUserRepository(db)
	promoRepo := repository.NewGormPromoRepository(db)
	planRepo := repository.NewGormPlanRepository(db)
	subRepo := repository.NewGormSubscriptionRepository(db)
	listingPayRepo := repository.NewGormListingPaymentRepository(db)
	subPayRepo := repository.NewGormSubscriptionPaymentRepository(db)
	propertyRepo := repository.NewGormPropertyRepository(db)
	favRepo := repository.NewGormFavoriteRepository(db)
	msgRepo := repository.NewGormMessageRepository(db)
	notifRepo := repository.NewGormNotificationRepository(db)

	// Initialize saga service
	checkoutSaga := saga.NewCheckoutSagaService(db, subRepo, subPayRepo, promoRepo, gateway, zapLogger)

	// Initialize application services
	promoService := application.NewPromoService(promoRepo, listingPayRepo, subPayRepo, zapLogger)
	quotaService := application.NewQuotaService(subRepo, planRepo, propertyRepo, zapLogger)
	paymentService := application.NewPaymentService(db, promoService, checkoutSaga, listingPayRepo, subPayRepo, propertyRepo, planRepo, userRepo, zapLogger)
	verificationService := application.NewVerificationService(db, gateway, listingPayRepo, subPayRepo, propertyRepo, subRepo, planRepo, kafkaProducer, zapLogger)
	propertyService := application.NewPropertyService(propertyRepo, favRepo, subRepo, planRepo, quotaService, userRepo, kafkaProducer, zapLogger)
	chatService := application.NewChatService(msgRepo, userRepo, kafkaProducer, zapLogger)
	subscriptionService := application.NewSubscriptionService(planRepo, quotaService, userRepo, zapLogger)
	notificationService := application.NewNotificationService(notifRepo, zapLogger)

	// Initialize realtime hub
	hub := ws.NewHub(zapLogger)

	// Initialize Kafka consumer for classifieds events
	consumerGroupID := cfg.KafkaConfig.GroupPrefix + "classifieds-notifier"
	kafkaConsumer := kafka.NewConsumer(cfg.KafkaConfig.Brokers, consumerGroupID, events.TopicClassifiedsEvents, zapLogger)
	defer kafkaConsumer.Close()

	notificationConsumer := classifiedsEvents.NewNotificationConsumer(kafkaConsumer, notificationService, userRepo, hub, push, zapLogger)

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting notification event consumer")
		if err := notificationConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("notification event consumer failed", zap.Error(err))
			}
		}
	}()

	// Start daily maintenance sweep
	sweeper := classifiedsCron.NewSweeper(subRepo, propertyRepo, zapLogger)
	if err := sweeper.Start(); err != nil {
		zapLogger.Fatal("failed to start sweeper", zap.Error(err))
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-classifieds")
	healthHandler.RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	handler.NewPaymentHandler(paymentService, verificationService).RegisterRoutes(apiV1, jwtManager)
	handler.NewPromoHandler(promoService).RegisterRoutes(apiV1, jwtManager)
	handler.NewSubscriptionHandler(subscriptionService).RegisterRoutes(apiV1, jwtManager)
	handler.NewPropertyHandler(propertyService).RegisterRoutes(apiV1, jwtManager)
	handler.NewMessageHandler(chatService).RegisterRoutes(apiV1, jwtManager)
	handler.NewNotificationHandler(notificationService).RegisterRoutes(apiV1, jwtManager)

	// Register realtime endpoints
	handler.NewWSHandler(hub, chatService, jwtManager, zapLogger).RegisterRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-classifieds...")

	consumerCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-classifieds stopped")
}
