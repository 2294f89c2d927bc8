package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// BatchInvalidate invalidates every pattern, logging each failure, and
// returns the failures joined.
func BatchInvalidate(ctx context.Context, helper *CacheHelper, patterns ...string) error {
	var errs []error
	for _, pattern := range patterns {
		if err := helper.InvalidatePattern(ctx, pattern); err != nil {
			slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
				"error", err,
				"backend", helper.Backend(),
				"pattern", helper.GetCacheKey(pattern))
			errs = append(errs, fmt.Errorf("invalidate %s: %w", pattern, err))
		}
	}
	return errors.Join(errs...)
}

// InvalidateUserCache drops the user and dashboard counters derived from the
// user collection.
func InvalidateUserCache(ctx context.Context, cm *CacheManager) error {
	return BatchInvalidate(ctx, cm.Stats, "users:*", "dashboard:*")
}

// InvalidateMenuStats drops menu counters.
func InvalidateMenuStats(ctx context.Context, cm *CacheManager) {
	SafeDelete(ctx, cm.Stats, "menu:overview")
}
