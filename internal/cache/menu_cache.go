package cache

import (
	"context"
	"time"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
)

// MenuCache caches rendered menu trees per role. It is owned by the menu
// service, which calls Invalidate after every mutation.
type MenuCache struct {
	helper *CacheHelper
	ttl    time.Duration
}

func NewMenuCache(helper *CacheHelper, ttl time.Duration) *MenuCache {
	if ttl <= 0 {
		ttl = MenuCacheConfig.TTL
	}
	return &MenuCache{helper: helper, ttl: ttl}
}

// TreeKey names the cache entry for a role's menu tree. Unknown roles all
// see the public items only, so they share one entry.
func TreeKey(role string) string {
	switch {
	case role == "":
		return "tree:all"
	case models.UserRole(role).IsValid():
		return "tree:" + role
	}
	return "tree:public"
}

func (m *MenuCache) TTL() time.Duration { return m.ttl }

// GetOrFetch decodes the entry for key into dest, calling fetch and storing
// its result when the entry is missing or expired. A zero ttl uses the
// cache default.
func (m *MenuCache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func() (any, error), dest any) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	return m.helper.CacheOrExecute(ctx, key, dest, ttl, fetch)
}

// Invalidate drops every cached menu tree.
func (m *MenuCache) Invalidate(ctx context.Context) error {
	return m.helper.InvalidatePattern(ctx, "*")
}
