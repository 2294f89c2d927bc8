package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/college-portal-service/internal/cache"
	"github.com/SAP-F-2025/college-portal-service/internal/config"
	"github.com/SAP-F-2025/college-portal-service/internal/events"
	"github.com/SAP-F-2025/college-portal-service/internal/handlers"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories/filestore"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/college-portal-service/internal/services"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize storage
	repoManager, err := newRepositoryManager(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to configure storage: %v", err)
	}
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = cache.ConnectRedis(context.Background(), cfg.Redis.URL, 3*time.Second)
		if err != nil {
			logger.Warn("Failed to initialize Redis, using in-process cache", "error", err)
			redisClient = nil
		}
	}
	cacheManager := cache.NewCacheManager(redisClient)

	// Initialize event bus
	bus, err := events.NewBus(events.Config{
		KafkaBrokers: cfg.Events.KafkaBrokers,
		Topic:        cfg.Events.Topic,
	}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	publisher := events.NewEventPublisher(bus.Publisher, cfg.Events.Topic, slogLogger)

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(repoManager, slogLogger, validator, cacheManager, publisher, services.ServiceManagerConfig{
		MenuCacheTTL:   cfg.Redis.MenuCacheTTL,
		DefaultTimeout: 30 * time.Second,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	if cfg.SeedMenu {
		seeded, err := serviceManager.Menu().SeedIfEmpty(context.Background())
		if err != nil {
			log.Fatalf("Failed to seed menu: %v", err)
		}
		if seeded {
			logger.Info("Seeded default menu")
		}
	}

	// Drop local caches when other instances change data
	invalidator := events.NewCacheInvalidator(bus.Subscriber, cfg.Events.Topic, slogLogger)
	invalidator.On(events.MenuChanged, serviceManager.Menu().InvalidateCache)
	for _, t := range []events.EventType{events.UserCreated, events.UserUpdated, events.UserDeleted} {
		invalidator.On(t, func(ctx context.Context) error {
			return cache.InvalidateUserCache(ctx, cacheManager)
		})
	}
	eventsCtx, stopEvents := context.WithCancel(context.Background())
	go func() {
		if err := invalidator.Run(eventsCtx); err != nil {
			logger.Error("Cache invalidator stopped", "error", err)
		}
	}()

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger, repoManager.GetRepository().Driver())

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	handlers.SetupMiddleware(router, logger, cfg.AllowedOrigins)

	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"storage", cfg.Storage.Driver,
			"cache", cacheManager.Backend(),
			"events", bus.Transport,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stopEvents()
	if err := bus.Close(); err != nil {
		log.Printf("Failed to close event bus: %v", err)
	}

	// Shutdown services (storage and cache)
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	logger.Info("Server exited")
}

func newRepositoryManager(cfg config.StorageConfig) (repositories.RepositoryManager, error) {
	switch cfg.Driver {
	case config.StoragePostgres:
		db, err := postgres.Open(cfg.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		return postgres.NewRepositoryManager(postgres.RepositoryConfig{DB: db}), nil
	case config.StorageFile:
		return filestore.NewRepositoryManager(filestore.RepositoryConfig{DataDir: cfg.DataDir}), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
