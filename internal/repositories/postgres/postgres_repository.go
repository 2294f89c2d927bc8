package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories/docstore"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db    *gorm.DB
	users *docstore.Collection
	menu  *docstore.Collection
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB      *gorm.DB
	Options []docstore.Option
}

// Open connects to Postgres with the given DSN.
func Open(dsn string, config *gorm.Config) (*gorm.DB, error) {
	if config == nil {
		config = &gorm.Config{}
	}
	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewPostgreSQLRepository creates the collections on top of the documents table
func NewPostgreSQLRepository(config RepositoryConfig) *PostgreSQLRepository {
	users := models.User{}.CollectionName()
	menu := models.MenuItem{}.CollectionName()
	return &PostgreSQLRepository{
		db:    config.DB,
		users: docstore.New(users, NewDocumentStorage(config.DB, users), config.Options...),
		menu:  docstore.New(menu, NewDocumentStorage(config.DB, menu), config.Options...),
	}
}

func (r *PostgreSQLRepository) Users() repositories.Collection     { return r.users }
func (r *PostgreSQLRepository) MenuItems() repositories.Collection { return r.menu }
func (r *PostgreSQLRepository) Driver() string                     { return "postgres" }

// Ping checks the health of the database connection
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   *PostgreSQLRepository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize checks the connection and migrates the documents table
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if err := rm.config.DB.WithContext(ctx).AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	if rm.repo == nil {
		return nil
	}
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
