package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/college-portal-service/internal/cache"
	"github.com/SAP-F-2025/college-portal-service/internal/events"
	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories/docstore"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

func init() {
	passwordHashCost = bcrypt.MinCost
}

var testStart = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// tickingClock advances one second per reading so records get distinct,
// increasing timestamps.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type memoryRepository struct {
	users   *docstore.Collection
	menu    *docstore.Collection
	pingErr error
}

func newMemoryRepository(now func() time.Time) *memoryRepository {
	var mu sync.Mutex
	seq := 0
	gen := func(time.Time) string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	opts := []docstore.Option{docstore.WithClock(now), docstore.WithIDGenerator(gen)}
	return &memoryRepository{
		users: docstore.New("users", docstore.NewMemoryStorage(), opts...),
		menu:  docstore.New("menuItems", docstore.NewMemoryStorage(), opts...),
	}
}

func (r *memoryRepository) Users() repositories.Collection     { return r.users }
func (r *memoryRepository) MenuItems() repositories.Collection { return r.menu }
func (r *memoryRepository) Driver() string                     { return "memory" }
func (r *memoryRepository) Ping(ctx context.Context) error     { return r.pingErr }
func (r *memoryRepository) Close() error                       { return nil }

type testEnv struct {
	repo      *memoryRepository
	clock     *tickingClock
	cache     *cache.CacheManager
	publisher *events.MockEventPublisher
	validator *validator.Validator
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &tickingClock{t: testStart}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		repo:      newMemoryRepository(clock.Now),
		clock:     clock,
		cache:     cache.NewCacheManager(nil),
		publisher: events.NewMockEventPublisher(logger),
		validator: validator.New(),
		logger:    logger,
	}
}

func (e *testEnv) userService() UserService {
	return NewUserService(e.repo, e.logger, e.validator, e.cache, e.publisher)
}

func (e *testEnv) menuService() MenuService {
	return NewMenuService(e.repo, e.logger, e.validator, e.cache, cache.NewMenuCache(e.cache.Menu, time.Minute), e.publisher)
}

func (e *testEnv) mustCreateUser(t *testing.T, name, email string, role models.UserRole) *models.UserResponse {
	t.Helper()
	u, err := e.userService().Create(context.Background(), &CreateUserRequest{
		Name:     name,
		Email:    email,
		Password: "secret123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", email, err)
	}
	return u
}

func ptr[T any](v T) *T { return &v }

// assertKind checks err wraps kind and, when msg is set, carries that message.
func assertKind(t *testing.T, err, kind error, msg string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
	if msg == "" {
		return
	}
	var be *BusinessError
	if !errors.As(err, &be) {
		t.Fatalf("error %T is not a BusinessError", err)
	}
	if be.Message != msg {
		t.Errorf("message = %q, want %q", be.Message, msg)
	}
}
