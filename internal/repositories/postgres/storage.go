package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories/docstore"
)

const insertBatchSize = 200

// DocumentStorage is a docstore.Storage keeping one collection in the
// documents table. Writers take a transaction-scoped advisory lock on the
// collection name, so updates from several instances are serialised.
type DocumentStorage struct {
	db         *gorm.DB
	collection string
}

var _ docstore.Storage = (*DocumentStorage)(nil)

func NewDocumentStorage(db *gorm.DB, collection string) *DocumentStorage {
	return &DocumentStorage{db: db, collection: collection}
}

func (s *DocumentStorage) Load(ctx context.Context) ([]models.Record, error) {
	return s.load(s.db.WithContext(ctx))
}

func (s *DocumentStorage) load(db *gorm.DB) ([]models.Record, error) {
	var docs []Document
	if err := db.
		Where("collection = ?", s.collection).
		Order("position").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", s.collection, err)
	}
	return fromDocuments(docs)
}

func (s *DocumentStorage) Update(ctx context.Context, fn func([]models.Record) ([]models.Record, bool, error)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", s.collection).Error; err != nil {
			return fmt.Errorf("failed to lock %s: %w", s.collection, err)
		}

		current, err := s.load(tx)
		if err != nil {
			return err
		}
		next, changed, err := fn(current)
		if err != nil || !changed {
			return err
		}

		docs, err := toDocuments(s.collection, next)
		if err != nil {
			return err
		}
		if err := tx.Where("collection = ?", s.collection).Delete(&Document{}).Error; err != nil {
			return fmt.Errorf("failed to replace %s: %w", s.collection, err)
		}
		if len(docs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(docs, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to replace %s: %w", s.collection, err)
		}
		return nil
	})
}

func (s *DocumentStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close is a no-op; the connection pool belongs to the repository.
func (s *DocumentStorage) Close() error { return nil }
