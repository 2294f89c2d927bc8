package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper provides cache-aside operations over redis, or over an
// in-process map when no redis client is configured.
type CacheHelper struct {
	client *redis.Client
	prefix string
	local  *localStore
}

// NewCacheHelper creates a new cache helper instance
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	h := &CacheHelper{
		client: client,
		prefix: prefix,
	}
	if client == nil {
		h.local = newLocalStore(time.Now)
	}
	return h
}

// CacheConfig defines cache configuration for different data types
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Menu trees; invalidated on every menu mutation
	MenuCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "menu:",
	}

	// Stats cache for dashboard and overview counters
	StatsCacheConfig = CacheConfig{
		TTL:    1 * time.Minute,
		Prefix: "stats:",
	}
)

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// GetCacheKey generates a cache key with prefix
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// Backend names where entries live.
func (c *CacheHelper) Backend() string {
	if c.client == nil {
		return "memory"
	}
	return "redis"
}

// Get retrieves and unmarshals data from cache
func (c *CacheHelper) Get(ctx context.Context, key string, dest any) error {
	cacheKey := c.GetCacheKey(key)

	var data []byte
	if c.client == nil {
		var ok bool
		if data, ok = c.local.get(cacheKey); !ok {
			return ErrCacheNotFound
		}
	} else {
		raw, err := c.client.Get(ctx, cacheKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrCacheNotFound
			}
			return fmt.Errorf("cache get error: %w", err)
		}
		data = raw
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

// Set marshals and stores data in cache
func (c *CacheHelper) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	cacheKey := c.GetCacheKey(key)
	if c.client == nil {
		c.local.set(cacheKey, data, ttl)
		return nil
	}
	return c.client.Set(ctx, cacheKey, data, ttl).Err()
}

// Delete removes keys from cache
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.GetCacheKey(key)
	}

	if c.client == nil {
		c.local.delete(cacheKeys...)
		return nil
	}
	return c.client.Del(ctx, cacheKeys...).Err()
}

// InvalidatePattern removes all keys matching a glob pattern using SCAN instead of KEYS
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	fullPattern := c.GetCacheKey(pattern)
	if c.client == nil {
		c.local.deleteMatching(fullPattern)
		return nil
	}

	var cursor uint64
	var keys []string

	for {
		var scanKeys []string
		var err error
		scanKeys, cursor, err = c.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			slog.ErrorContext(ctx, "Cache scan pattern error",
				"error", err,
				"pattern", fullPattern)
			return fmt.Errorf("cache scan pattern error: %w", err)
		}
		keys = append(keys, scanKeys...)
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := min(i+batchSize, len(keys))
		pipe.Del(ctx, keys[i:end]...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.ErrorContext(ctx, "Cache pipeline delete error",
			"error", err,
			"total_keys", len(keys))
		return fmt.Errorf("cache pipeline delete error: %w", err)
	}

	return nil
}

// CacheOrExecute implements the cache-aside pattern. A failing cache never
// fails the call; the value is fetched and returned anyway.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest any, ttl time.Duration, fetchFunc func() (any, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) {
		slog.InfoContext(ctx, "Cache get error, proceeding to fetch", "error", err, "key", key)
	}

	value, err := fetchFunc()
	if err != nil {
		return fmt.Errorf("fetch function error: %w", err)
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.ErrorContext(ctx, "Cache set error", "error", err, "key", key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Ping verifies cache connectivity
func (c *CacheHelper) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// CacheManager manages the cache helpers used by services
type CacheManager struct {
	client *redis.Client
	Menu   *CacheHelper
	Stats  *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers. A nil client
// selects in-process caches.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client: client,
		Menu:   NewCacheHelper(client, MenuCacheConfig.Prefix),
		Stats:  NewCacheHelper(client, StatsCacheConfig.Prefix),
	}
}

// NewRedisClient parses a redis URL such as redis://localhost:6379/0.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// ConnectRedis opens a client and pings it within timeout. The client is
// closed when the server does not answer.
func ConnectRedis(ctx context.Context, url string, timeout time.Duration) (*redis.Client, error) {
	client, err := NewRedisClient(url)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return client, nil
}

func (cm *CacheManager) Backend() string { return cm.Menu.Backend() }

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	return cm.Menu.Ping(ctx)
}

func (cm *CacheManager) Close() error {
	if cm.client == nil {
		return nil
	}
	return cm.client.Close()
}

type localEntry struct {
	data    []byte
	expires time.Time
}

// localStore is the fallback used without redis. Entries expire lazily.
type localStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]localEntry
}

func newLocalStore(now func() time.Time) *localStore {
	return &localStore{now: now, entries: make(map[string]localEntry)}
}

func (s *localStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false
	}
	return e.data, true
}

func (s *localStore) set(key string, data []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := localEntry{data: data}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[key] = e
}

func (s *localStore) delete(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
}

func (s *localStore) deleteMatching(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.entries, k)
		}
	}
}
