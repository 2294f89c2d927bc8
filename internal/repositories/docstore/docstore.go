// Package docstore implements the record store contract on top of any
// backend able to load and atomically replace a collection snapshot.
package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/pipeline"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
)

// Storage persists whole collection snapshots.
type Storage interface {
	// Load returns the current snapshot. A collection that was never written
	// is empty, not an error.
	Load(ctx context.Context) ([]models.Record, error)

	// Update runs fn on the current snapshot with writes to the collection
	// serialised, and persists the returned snapshot when fn reports a change.
	Update(ctx context.Context, fn func(records []models.Record) ([]models.Record, bool, error)) error

	Ping(ctx context.Context) error
	Close() error
}

// Option configures a Collection.
type Option func(*Collection)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Collection) { c.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(c *Collection) { c.newID = gen }
}

// Collection implements repositories.Collection over a Storage.
type Collection struct {
	name    string
	storage Storage
	now     func() time.Time
	newID   func(time.Time) string
}

var _ repositories.Collection = (*Collection)(nil)

func New(name string, storage Storage, opts ...Option) *Collection {
	c := &Collection{
		name:    name,
		storage: storage,
		now:     time.Now,
		newID:   utils.GenerateID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) Storage() Storage { return c.storage }

func (c *Collection) ReadAll(ctx context.Context) ([]models.Record, error) {
	recs, err := c.storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.name, err)
	}
	if recs == nil {
		recs = []models.Record{}
	}
	return recs, nil
}

func (c *Collection) WriteAll(ctx context.Context, records []models.Record) error {
	snapshot := make([]models.Record, len(records))
	for i, r := range records {
		snapshot[i] = r.Clone()
	}
	err := c.storage.Update(ctx, func([]models.Record) ([]models.Record, bool, error) {
		return snapshot, true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection) Find(ctx context.Context, q query.Predicate) ([]models.Record, error) {
	recs, err := c.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return filter(recs, q), nil
}

func (c *Collection) FindOne(ctx context.Context, q query.Predicate) (models.Record, error) {
	recs, err := c.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(recs, q); i >= 0 {
		return recs[i], nil
	}
	return nil, repositories.ErrNotFound
}

func (c *Collection) FindByID(ctx context.Context, id string) (models.Record, error) {
	return c.FindOne(ctx, byID(id))
}

func (c *Collection) CountDocuments(ctx context.Context, q query.Predicate) (int, error) {
	recs, err := c.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	if q == nil {
		return len(recs), nil
	}
	n := 0
	for _, r := range recs {
		if q.Match(r) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) Aggregate(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error) {
	recs, err := c.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return p.Run(models.Records(recs))
}

func (c *Collection) Create(ctx context.Context, record models.Record, guards ...repositories.Guard) (models.Record, error) {
	created, err := c.insert(ctx, []models.Record{record}, guards)
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// InsertMany appends records, keeping caller-supplied ids and generating the
// rest. The whole batch is rejected if any supplied id is already taken.
func (c *Collection) InsertMany(ctx context.Context, records []models.Record) ([]models.Record, error) {
	return c.insert(ctx, records, nil)
}

func (c *Collection) insert(ctx context.Context, records []models.Record, guards []repositories.Guard) ([]models.Record, error) {
	var created []models.Record
	err := c.storage.Update(ctx, func(current []models.Record) ([]models.Record, bool, error) {
		if err := repositories.CheckGuards(current, guards); err != nil {
			return nil, false, err
		}
		taken := make(map[string]bool, len(current)+len(records))
		for _, r := range current {
			taken[r.ID()] = true
		}

		now := c.now()
		stamp := models.FormatTime(now)
		created = make([]models.Record, 0, len(records))
		for _, in := range records {
			rec := in.Clone()
			if rec == nil {
				rec = models.Record{}
			}
			id := rec.ID()
			switch {
			case id != "" && taken[id]:
				return nil, false, fmt.Errorf("%w: %s", repositories.ErrDuplicateID, id)
			case id == "":
				for id = c.newID(now); taken[id]; id = c.newID(now) {
				}
			}
			taken[id] = true
			rec[models.FieldID] = id
			rec[models.FieldCreatedAt] = stamp
			rec[models.FieldUpdatedAt] = stamp
			created = append(created, rec)
		}

		next := make([]models.Record, 0, len(current)+len(created))
		next = append(next, current...)
		for _, rec := range created {
			next = append(next, rec.Clone())
		}
		return next, true, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateOne shallow-merges update into the first match and refreshes
// updatedAt. The id field cannot be changed.
func (c *Collection) UpdateOne(ctx context.Context, q query.Predicate, update models.Record, guards ...repositories.Guard) (models.Record, error) {
	var updated models.Record
	err := c.storage.Update(ctx, func(current []models.Record) ([]models.Record, bool, error) {
		i := indexOf(current, q)
		if i < 0 {
			return nil, false, repositories.ErrNotFound
		}
		if err := repositories.CheckGuards(current, guards); err != nil {
			return nil, false, err
		}
		merged := current[i].Clone()
		for k, v := range update.Clone() {
			if k == models.FieldID || k == models.FieldCreatedAt {
				continue
			}
			merged[k] = v
		}
		merged[models.FieldUpdatedAt] = models.FormatTime(c.now())
		current[i] = merged
		updated = merged.Clone()
		return current, true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Collection) FindByIDAndUpdate(ctx context.Context, id string, update models.Record, guards ...repositories.Guard) (models.Record, error) {
	return c.UpdateOne(ctx, byID(id), update, guards...)
}

func (c *Collection) DeleteOne(ctx context.Context, q query.Predicate, guards ...repositories.Guard) (models.Record, error) {
	var deleted models.Record
	err := c.storage.Update(ctx, func(current []models.Record) ([]models.Record, bool, error) {
		i := indexOf(current, q)
		if i < 0 {
			return nil, false, repositories.ErrNotFound
		}
		if err := repositories.CheckGuards(current, guards); err != nil {
			return nil, false, err
		}
		deleted = current[i]
		next := make([]models.Record, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		return next, true, nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (c *Collection) FindByIDAndDelete(ctx context.Context, id string, guards ...repositories.Guard) (models.Record, error) {
	return c.DeleteOne(ctx, byID(id), guards...)
}

func (c *Collection) DeleteMany(ctx context.Context, q query.Predicate) (int, error) {
	var count int
	err := c.storage.Update(ctx, func(current []models.Record) ([]models.Record, bool, error) {
		next := make([]models.Record, 0, len(current))
		for _, r := range current {
			if q == nil || q.Match(r) {
				count++
				continue
			}
			next = append(next, r)
		}
		return next, count > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func byID(id string) query.Predicate {
	return query.Eq(models.FieldID, id)
}

func indexOf(recs []models.Record, q query.Predicate) int {
	for i, r := range recs {
		if q == nil || q.Match(r) {
			return i
		}
	}
	return -1
}

func filter(recs []models.Record, q query.Predicate) []models.Record {
	out := make([]models.Record, 0, len(recs))
	for _, r := range recs {
		if q == nil || q.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
