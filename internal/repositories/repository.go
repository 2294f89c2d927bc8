package repositories

import "context"

// Repository exposes the portal's collections over one storage backend.
type Repository interface {
	Users() Collection
	MenuItems() Collection

	// Driver names the backend ("file" or "postgres").
	Driver() string

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with storage connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
