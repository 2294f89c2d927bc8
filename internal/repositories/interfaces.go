package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/pipeline"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("record with this id already exists")
	ErrClosed      = errors.New("collection is closed")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Guard inspects the stored records inside a write, before anything changes,
// and aborts the write by returning an error. Guards run under the same
// serialisation as the write itself.
type Guard func(records []models.Record) error

// Unique fails with err when any stored record matches q.
func Unique(q query.Predicate, err error) Guard {
	return func(records []models.Record) error {
		for _, r := range records {
			if q.Match(r) {
				return err
			}
		}
		return nil
	}
}

// CheckGuards runs guards in order and returns the first failure.
func CheckGuards(records []models.Record, guards []Guard) error {
	for _, g := range guards {
		if err := g(records); err != nil {
			return err
		}
	}
	return nil
}

// Collection is the record store for one named collection. A nil predicate
// matches every record. Returned records are copies the caller may modify.
type Collection interface {
	Name() string

	// Whole-collection access
	ReadAll(ctx context.Context) ([]models.Record, error)
	WriteAll(ctx context.Context, records []models.Record) error

	// Reads
	Find(ctx context.Context, q query.Predicate) ([]models.Record, error)
	FindOne(ctx context.Context, q query.Predicate) (models.Record, error)
	FindByID(ctx context.Context, id string) (models.Record, error)
	CountDocuments(ctx context.Context, q query.Predicate) (int, error)
	Aggregate(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error)

	// Writes. Guards are checked against the stored records inside the write.
	Create(ctx context.Context, record models.Record, guards ...Guard) (models.Record, error)
	InsertMany(ctx context.Context, records []models.Record) ([]models.Record, error)
	UpdateOne(ctx context.Context, q query.Predicate, update models.Record, guards ...Guard) (models.Record, error)
	FindByIDAndUpdate(ctx context.Context, id string, update models.Record, guards ...Guard) (models.Record, error)
	DeleteOne(ctx context.Context, q query.Predicate, guards ...Guard) (models.Record, error)
	FindByIDAndDelete(ctx context.Context, id string, guards ...Guard) (models.Record, error)
	DeleteMany(ctx context.Context, q query.Predicate) (int, error)
}
