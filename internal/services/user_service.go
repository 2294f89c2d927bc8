package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/college-portal-service/internal/cache"
	"github.com/SAP-F-2025/college-portal-service/internal/events"
	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

// passwordHashCost is lowered by tests.
var passwordHashCost = bcrypt.DefaultCost

const userStatsKey = "users:overview"

type userService struct {
	repo      repositories.UserRepository
	validator *validator.BusinessValidator
	cache     *cache.CacheManager
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewUserService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, cm *cache.CacheManager, publisher events.EventPublisher) UserService {
	return &userService{
		repo:      repositories.NewUserRepository(repo.Users()),
		validator: v.GetBusinessValidator(),
		cache:     cm,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *userService) Create(ctx context.Context, req *CreateUserRequest) (*models.UserResponse, error) {
	s.logger.Info("Creating user", "email", req.Email, "role", req.Role)

	if errs := s.validator.ValidateUserCreate(req); len(errs) > 0 {
		return nil, FromValidation(errs)
	}

	email := repositories.NormalizeEmail(req.Email)
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		StudentID:    deref(req.StudentID),
		Department:   deref(req.Department),
		Year:         req.Year,
		Phone:        deref(req.Phone),
		Address:      deref(req.Address),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmailTaken):
			return nil, NewConflictError("User with this email already exists")
		case errors.Is(err, repositories.ErrStudentIDTaken):
			return nil, NewConflictError("Student ID already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.afterChange(ctx, events.UserCreated, user)
	s.logger.Info("User created successfully", "user_id", user.ID)

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List returns one page of matching users, newest first.
func (s *userService) List(ctx context.Context, filters repositories.UserFilters, page, limit int) (*UserListResponse, error) {
	s.logger.Debug("Listing users", "page", page, "limit", limit, "role", filters.Role)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = validator.DefaultPageLimit
	}

	users, err := s.repo.List(ctx, filters)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidSearch) {
			return nil, NewValidationError("Validation failed", "Search must be a valid regular expression")
		}
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sortNewestFirst(users)

	total := len(users)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	resp := &UserListResponse{
		Users:       make([]models.UserResponse, 0, end-start),
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Total:       total,
	}
	for _, u := range users[start:end] {
		resp.Users = append(resp.Users, u.ToResponse())
	}
	return resp, nil
}

func (s *userService) Update(ctx context.Context, id string, req *UpdateUserRequest) (*models.UserResponse, error) {
	s.logger.Info("Updating user", "user_id", id)

	if errs := s.validator.ValidateUserUpdate(req); len(errs) > 0 {
		return nil, FromValidation(errs)
	}
	user, err := s.repo.Update(ctx, id, req.Fields())
	if err != nil {
		switch {
		case repositories.IsNotFoundError(err):
			return nil, NewNotFoundError("User not found")
		case errors.Is(err, repositories.ErrEmailTaken):
			return nil, NewConflictError("Email already taken by another user")
		case errors.Is(err, repositories.ErrStudentIDTaken):
			return nil, NewConflictError("Student ID already taken by another user")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.afterChange(ctx, events.UserUpdated, user)
	s.logger.Info("User updated successfully", "user_id", id)

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	s.logger.Info("Deleting user", "user_id", id)

	user, err := s.repo.Delete(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return NewNotFoundError("User not found")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.afterChange(ctx, events.UserDeleted, user)
	s.logger.Info("User deleted successfully", "user_id", id)
	return nil
}

func (s *userService) GetStats(ctx context.Context) (*UserStatsResponse, error) {
	var stats UserStatsResponse
	err := s.cache.Stats.CacheOrExecute(ctx, userStatsKey, &stats, cache.StatsCacheConfig.TTL, func() (any, error) {
		return s.computeStats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *userService) computeStats(ctx context.Context) (*UserStatsResponse, error) {
	stats := &UserStatsResponse{}
	counts := []struct {
		dst *int
		q   query.Predicate
	}{
		{&stats.TotalUsers, nil},
		{&stats.ActiveUsers, query.Eq("isActive", true)},
		{&stats.Students, query.Eq("role", string(models.RoleStudent))},
		{&stats.Faculty, query.Eq("role", string(models.RoleFaculty))},
		{&stats.Admins, query.Eq("role", string(models.RoleAdmin))},
	}
	for _, c := range counts {
		n, err := s.repo.Count(ctx, c.q)
		if err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		*c.dst = n
	}
	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers
	return stats, nil
}

// afterChange drops derived stats and announces the change.
func (s *userService) afterChange(ctx context.Context, t events.EventType, user *models.User) {
	cache.InvalidateUserCache(ctx, s.cache)
	publish(ctx, s.publisher, s.logger, events.NewEvent(t, events.UserEventData{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", NewValidationError("Validation failed", "Password must be at most 72 bytes long")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func sortNewestFirst(users []*models.User) {
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt > users[j].CreatedAt
	})
}

// publish sends ev and only logs failures; events never fail a request.
func publish(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, ev *events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish event", "type", ev.Type, "error", err)
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
