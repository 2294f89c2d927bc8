package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
)

// ErrHasChildren is returned when deleting an item that other items point to.
var ErrHasChildren = errors.New("menu item has children")

// MenuRepository interface for menu item operations
type MenuRepository interface {
	Create(ctx context.Context, item *models.MenuItem, guards ...Guard) error
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	List(ctx context.Context, q query.Predicate) ([]models.MenuItem, error)
	Update(ctx context.Context, id string, fields models.Record, guards ...Guard) (*models.MenuItem, error)

	// Delete removes a childless item, failing with ErrHasChildren otherwise.
	Delete(ctx context.Context, id string) (*models.MenuItem, error)

	Count(ctx context.Context, q query.Predicate) (int, error)

	// ReplaceAll drops every item and inserts items with fresh timestamps.
	ReplaceAll(ctx context.Context, items []models.MenuItem) ([]models.MenuItem, error)
}

type menuRepository struct {
	c Collection
}

func NewMenuRepository(c Collection) MenuRepository {
	return &menuRepository{c: c}
}

func (r *menuRepository) Create(ctx context.Context, item *models.MenuItem, guards ...Guard) error {
	rec, err := menuRecord(item)
	if err != nil {
		return err
	}
	saved, err := r.c.Create(ctx, rec, guards...)
	if err != nil {
		return err
	}
	return saved.Decode(item)
}

func (r *menuRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	return decodeOne[models.MenuItem](r.c.FindByID(ctx, id))
}

func (r *menuRepository) List(ctx context.Context, q query.Predicate) ([]models.MenuItem, error) {
	recs, err := r.c.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeItems(recs)
}

func (r *menuRepository) Update(ctx context.Context, id string, fields models.Record, guards ...Guard) (*models.MenuItem, error) {
	return decodeOne[models.MenuItem](r.c.FindByIDAndUpdate(ctx, id, fields, guards...))
}

func (r *menuRepository) Delete(ctx context.Context, id string) (*models.MenuItem, error) {
	noChildren := Unique(query.Eq("parentId", id), ErrHasChildren)
	return decodeOne[models.MenuItem](r.c.FindByIDAndDelete(ctx, id, noChildren))
}

func (r *menuRepository) Count(ctx context.Context, q query.Predicate) (int, error) {
	return r.c.CountDocuments(ctx, q)
}

func (r *menuRepository) ReplaceAll(ctx context.Context, items []models.MenuItem) ([]models.MenuItem, error) {
	recs := make([]models.Record, 0, len(items))
	for i := range items {
		rec, err := menuRecord(&items[i])
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if _, err := r.c.DeleteMany(ctx, nil); err != nil {
		return nil, err
	}
	saved, err := r.c.InsertMany(ctx, recs)
	if err != nil {
		return nil, err
	}
	return decodeItems(saved)
}

// MenuGuard adapts a check over the stored menu items into a Guard.
func MenuGuard(check func(items []models.MenuItem) error) Guard {
	return func(records []models.Record) error {
		items, err := decodeItems(records)
		if err != nil {
			return err
		}
		return check(items)
	}
}

func menuRecord(item *models.MenuItem) (models.Record, error) {
	rec, err := models.ToRecord(item)
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		delete(rec, models.FieldID)
	}
	if item.RequiredRoles == nil {
		rec["requiredRoles"] = []any{}
	}
	return rec, nil
}

func decodeItems(recs []models.Record) ([]models.MenuItem, error) {
	out := make([]models.MenuItem, 0, len(recs))
	for _, rec := range recs {
		var item models.MenuItem
		if err := rec.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
