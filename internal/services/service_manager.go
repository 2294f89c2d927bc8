package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/college-portal-service/internal/cache"
	"github.com/SAP-F-2025/college-portal-service/internal/events"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	MenuCacheTTL   time.Duration
	DefaultTimeout time.Duration
}

// DefaultServiceManagerConfig returns the settings used when none are given.
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		MenuCacheTTL:   cache.MenuCacheConfig.TTL,
		DefaultTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration
func (c ServiceManagerConfig) Validate() error {
	var errs []error
	if c.MenuCacheTTL < 0 {
		errs = append(errs, errors.New("menu cache TTL cannot be negative"))
	}
	if c.DefaultTimeout <= 0 {
		errs = append(errs, errors.New("default timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repoManager repositories.RepositoryManager
	logger      *slog.Logger
	validator   *validator.Validator
	cache       *cache.CacheManager
	publisher   events.EventPublisher
	config      ServiceManagerConfig

	// Service instances
	userService      UserService
	menuService      MenuService
	dashboardService DashboardService
	authService      AuthService
	exportService    ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies. The
// repository manager must already be initialized.
func NewServiceManager(repoManager repositories.RepositoryManager, logger *slog.Logger, v *validator.Validator, cm *cache.CacheManager, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repoManager: repoManager,
		logger:      logger,
		validator:   v,
		cache:       cm,
		publisher:   publisher,
		config:      config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}

	repo := sm.repoManager.GetRepository()
	if repo == nil {
		return errors.New("repository manager not initialized")
	}

	menuCache := cache.NewMenuCache(sm.cache.Menu, sm.config.MenuCacheTTL)

	sm.userService = NewUserService(repo, sm.logger, sm.validator, sm.cache, sm.publisher)
	sm.menuService = NewMenuService(repo, sm.logger, sm.validator, sm.cache, menuCache, sm.publisher)
	sm.dashboardService = NewDashboardService(repo, sm.cache, sm.logger)
	sm.authService = NewAuthService(repo, sm.logger, sm.validator, sm.cache)
	sm.exportService = NewExportService(repo, sm.logger)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully", "storage", repo.Driver(), "cache", sm.cache.Backend())

	return nil
}

func (sm *serviceManager) mustBeReady(name string, svc any) {
	if !sm.initialized {
		panic("service manager not initialized")
	}
	if svc == nil {
		panic(name + " service not initialized")
	}
}

// Service getters
func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("user", sm.userService)
	return sm.userService
}

func (sm *serviceManager) Menu() MenuService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("menu", sm.menuService)
	return sm.menuService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("dashboard", sm.dashboardService)
	return sm.dashboardService
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("auth", sm.authService)
	return sm.authService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("export", sm.exportService)
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	ctx, cancel := sm.withTimeout(ctx)
	defer cancel()

	if err := sm.repoManager.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	if err := sm.cache.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	ctx, cancel := sm.withTimeout(ctx)
	defer cancel()

	var errs []error
	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
			errs = append(errs, err)
		}
	}
	if err := sm.repoManager.Shutdown(ctx); err != nil {
		sm.logger.Error("Failed to shutdown repository manager", "error", err)
		errs = append(errs, err)
	}
	if err := sm.cache.Close(); err != nil {
		sm.logger.Error("Failed to close cache", "error", err)
		errs = append(errs, err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return errors.Join(errs...)
}

// withTimeout bounds ctx by the configured default timeout
func (sm *serviceManager) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}
