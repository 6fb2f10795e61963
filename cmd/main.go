package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"google.golang.org/api/option"
	"storybook-service/internal/clients"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/config"
	"storybook-service/internal/events"
	"storybook-service/internal/handlers"
	"storybook-service/internal/middleware"
	"storybook-service/internal/models"
	"storybook-service/internal/repository"
	"storybook-service/internal/repository/firestore"
	"storybook-service/internal/repository/memory"
	"storybook-service/internal/repository/postgres"
	"storybook-service/internal/services"
	"storybook-service/internal/storage"
	"storybook-service/internal/workers"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

const serviceName = "storybook-service"

// @title Storybook Service API
// @version 1.0
// @description Back office API for personalised storybook orders, print vendors and WooCommerce sync

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg)

	ctx := context.Background()

	// Firebase app backs both auth and Firestore storage
	var fbApp *firebase.App
	if cfg.FirebaseEnabled() {
		app, err := initFirebase(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		fbApp = app
		log.Println("✓ Firebase app initialized")
	}

	store, err := initStore(ctx, cfg, fbApp, logger)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Printf("✓ Storage initialized (%s)", cfg.StorageDriver)

	if cfg.BootstrapAdminUID != "" {
		if err := bootstrapAdmin(ctx, store, cfg.BootstrapAdminUID, cfg.BootstrapAdminEmail); err != nil {
			log.Printf("Warning: Failed to bootstrap admin user: %v", err)
		}
	}

	// Initialize Redis client (optional - graceful degradation if Redis unavailable)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Failed to parse Redis URL: %v", err)
			log.Println("Continuing without Redis caching...")
		} else {
			redisClient = redis.NewClient(opt)

			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				log.Printf("Warning: Failed to connect to Redis: %v", err)
				log.Println("Continuing without Redis caching...")
				redisClient = nil
			} else {
				log.Println("✓ Connected to Redis for caching")
			}
			cancel()
		}
	} else {
		log.Println("REDIS_URL not configured, caching disabled")
	}

	// Auth: Firebase ID tokens, or X-User-* headers in development
	authConfig := middleware.AuthConfig{Logger: logger, DevHeaders: cfg.DevAuthEnabled()}
	if fbApp != nil {
		authClient, err := fbApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase auth: %v", err)
		}
		authConfig.Verifier = authClient
		log.Println("✓ Firebase token verification enabled")
	}
	if authConfig.DevHeaders {
		log.Println("✓ Using development auth headers (X-User-ID, X-User-Role)")
	}

	// WooCommerce
	wooClient := woocommerce.NewClient(woocommerce.Config{
		BaseURL:        cfg.Woo.BaseURL,
		ConsumerKey:    cfg.Woo.ConsumerKey,
		ConsumerSecret: cfg.Woo.ConsumerSecret,
		Timeout:        cfg.Woo.Timeout,
		RequestsPerSec: cfg.Woo.RequestsPerSec,
	}, logger)
	if cfg.WooEnabled() {
		log.Println("✓ WooCommerce client initialized")
	} else {
		log.Println("WARNING: WooCommerce credentials not configured, upstream calls will fail")
	}

	// Asset storage: S3 when a bucket is configured, local directory otherwise
	var objects storage.ObjectStore
	var devFilesHandler *handlers.DevFilesHandler
	if cfg.S3.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		objects = s3Store
		log.Printf("✓ S3 asset storage initialized (bucket %s)", cfg.S3.Bucket)
	} else {
		localStore, err := storage.NewLocalStore(cfg.LocalUploadDir, cfg.PublicBaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		objects = localStore
		devFilesHandler = handlers.NewDevFilesHandler(localStore, logger)
		log.Printf("✓ Local asset storage initialized (%s)", cfg.LocalUploadDir)
	}

	// Notifications are logged only when no notification service is configured
	notificationClient := clients.NewNotificationClient(cfg.NotificationServiceURL, cfg.PublicBaseURL, logger)
	log.Println("✓ Notification client initialized")

	// Order events (optional)
	var publisher services.OrderEventPublisher
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, cfg.StoreID, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (order events disabled)", err)
		} else {
			publisher = eventsPublisher
			log.Println("✓ Order events publisher initialized")
		}
	}

	// Initialize services
	customerService := services.NewCustomerService(wooClient, logger)
	orderService := services.NewOrderService(store, wooClient, publisher, notificationClient, logger)
	wooSyncService := services.NewWooSyncService(wooClient, store.Orders, publisher, logger)
	productService := services.NewProductService(wooClient, redisClient, logger)
	storyService := services.NewStoryService(store, logger)
	inviteService := services.NewInviteService(store, notificationClient, cfg.InviteSecret, cfg.PublicBaseURL, logger)
	assetService := services.NewAssetService(store, objects, logger)

	// Background WooCommerce import
	var wooSyncWorker *workers.WooSyncWorker
	if cfg.WooSyncInterval > 0 && cfg.WooEnabled() {
		wooSyncWorker = workers.NewWooSyncWorker(wooSyncService, redisClient, cfg.WooSyncStatus, cfg.WooSyncInterval, logger)
	} else {
		log.Println("WOO_SYNC_INTERVAL not configured, background sync disabled")
	}

	// story.rendered subscriber (optional)
	var storySubscriber *events.StorySubscriber
	if cfg.NATSURL != "" {
		storySubscriber, err = events.NewStorySubscriber(cfg.NATSURL, storyService, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize story subscriber: %v (render updates disabled)", err)
			storySubscriber = nil
		} else {
			log.Println("✓ Story subscriber initialized")
		}
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(store, productService, wooSyncWorker)
	routeHandlers := handlers.Handlers{
		Customers: handlers.NewCustomerHandler(customerService, logger),
		Orders:    handlers.NewOrderHandler(orderService, logger),
		WooOrders: handlers.NewWooOrderHandler(wooSyncService, logger),
		Products:  handlers.NewProductHandler(productService),
		Vendors:   handlers.NewVendorHandler(orderService, assetService, logger),
		Stories:   handlers.NewStoryHandler(storyService),
		Invites:   handlers.NewInviteHandler(inviteService),
		Assets:    handlers.NewAssetHandler(assetService, orderService, logger),
		DevFiles:  devFilesHandler,
	}

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	var tracerErr error
	if cfg.IsProduction() {
		tracerProvider, tracerErr = tracing.InitTracer(tracing.ProductionConfig(serviceName))
	} else {
		tracerProvider, tracerErr = tracing.InitTracer(tracing.DefaultConfig(serviceName))
	}
	if tracerErr != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", tracerErr)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	// Initialize Prometheus metrics
	metrics := gosharedmw.InitGlobalMetrics("storybook", "storybook_service")
	log.Println("✓ Prometheus metrics initialized")

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gosharedmw.SecurityHeaders())

	// Rate limiting middleware (uses Redis for distributed rate limiting)
	if redisClient != nil {
		router.Use(gosharedmw.RedisRateLimitMiddlewareWithProfile(redisClient, "standard"))
		log.Println("✓ Redis-based rate limiting enabled")
	} else {
		router.Use(gosharedmw.RateLimit())
		log.Println("✓ In-memory rate limiting enabled (Redis unavailable)")
	}

	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware(serviceName))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-User-Email", "X-User-Role", "X-Vendor-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health endpoints
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)

	// Metrics endpoint
	router.GET("/metrics", gosharedmw.Handler())

	if !cfg.IsProduction() {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers.RegisterRoutes(router, routeHandlers, authConfig, store.Users)
	log.Println("✓ API routes registered")

	// Start background workers
	if wooSyncWorker != nil {
		wooSyncWorker.Start()
		log.Println("✓ WooCommerce sync worker started")
	}

	subscriberCtx, stopSubscriber := context.WithCancel(ctx)
	defer stopSubscriber()
	if storySubscriber != nil {
		if err := storySubscriber.Start(subscriberCtx); err != nil {
			log.Printf("WARNING: Failed to start story subscriber: %v", err)
		} else {
			log.Println("✓ Story subscriber started")
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting %s on port %s", serviceName, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down %s...", serviceName)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if wooSyncWorker != nil {
		wooSyncWorker.Stop()
		log.Println("✓ Background workers stopped")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stopSubscriber()
	if storySubscriber != nil {
		storySubscriber.Close()
	}
	if eventsPublisher != nil {
		eventsPublisher.Close()
	}

	if err := store.Shutdown(); err != nil {
		log.Printf("Error closing storage: %v", err)
	} else {
		log.Println("✓ Storage closed")
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		} else {
			log.Println("✓ Tracer provider shut down")
		}
	}

	log.Println("Storybook service stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func initFirebase(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
}

func initStore(ctx context.Context, cfg *config.Config, fbApp *firebase.App, logger *logrus.Logger) (*repository.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageFirestore:
		if fbApp == nil {
			return nil, errors.New("firestore storage requires FIREBASE_PROJECT_ID")
		}
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		return firestore.NewStore(client), nil

	case config.StoragePostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return postgres.NewStore(db), nil

	default:
		if cfg.DevDataFile != "" {
			log.Printf("Using in-memory storage persisted to %s", cfg.DevDataFile)
		}
		return memory.NewStore(cfg.DevDataFile, logger)
	}
}

// bootstrapAdmin makes sure the configured uid has an admin record.
func bootstrapAdmin(ctx context.Context, store *repository.Store, uid, email string) error {
	err := store.Users.Create(ctx, &models.User{
		UID:       uid,
		Email:     email,
		Role:      models.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("✓ Bootstrapped admin user %s", uid)
	return nil
}
