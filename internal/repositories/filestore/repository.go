package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories/docstore"
)

// FileRepository implements repositories.Repository with one JSON file per
// collection inside a data directory.
type FileRepository struct {
	dir      string
	users    *docstore.Collection
	menu     *docstore.Collection
	storages []*FileStorage
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DataDir string
	Options []docstore.Option
}

func NewFileRepository(config RepositoryConfig) *FileRepository {
	r := &FileRepository{dir: config.DataDir}
	r.users = r.collection(models.User{}.CollectionName(), config.Options)
	r.menu = r.collection(models.MenuItem{}.CollectionName(), config.Options)
	return r
}

func (r *FileRepository) collection(name string, opts []docstore.Option) *docstore.Collection {
	s := Open(filepath.Join(r.dir, name+".json"))
	r.storages = append(r.storages, s)
	return docstore.New(name, s, opts...)
}

func (r *FileRepository) Users() repositories.Collection     { return r.users }
func (r *FileRepository) MenuItems() repositories.Collection { return r.menu }
func (r *FileRepository) Driver() string                     { return "file" }

func (r *FileRepository) Ping(ctx context.Context) error {
	for _, s := range r.storages {
		if err := s.Ping(ctx); err != nil {
			return fmt.Errorf("storage %s unavailable: %w", filepath.Base(s.Path()), err)
		}
	}
	return nil
}

func (r *FileRepository) Close() error {
	var errs []error
	for _, s := range r.storages {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   *FileRepository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize creates the data directory and starts the collection owners.
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(rm.config.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	rm.repo = NewFileRepository(rm.config)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	if rm.repo == nil {
		return nil
	}
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
