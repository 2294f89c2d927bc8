package docstore

import (
	"context"
	"sync"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
)

// MemoryStorage keeps a snapshot in process memory. Writes are serialised
// by a mutex; it backs tests and ephemeral deployments.
type MemoryStorage struct {
	mu      sync.Mutex
	records []models.Record
	writes  int
}

func NewMemoryStorage(initial ...models.Record) *MemoryStorage {
	s := &MemoryStorage{}
	for _, r := range initial {
		s.records = append(s.records, r.Clone())
	}
	return s
}

func (s *MemoryStorage) Load(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.records), nil
}

func (s *MemoryStorage) Update(ctx context.Context, fn func([]models.Record) ([]models.Record, bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed, err := fn(cloneAll(s.records))
	if err != nil || !changed {
		return err
	}
	s.records = cloneAll(next)
	s.writes++
	return nil
}

// Writes reports how many snapshots have been persisted.
func (s *MemoryStorage) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *MemoryStorage) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStorage) Close() error { return nil }

func cloneAll(in []models.Record) []models.Record {
	out := make([]models.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
