package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/college-portal-service/internal/cache"
	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

const invalidCredentials = "Invalid email or password"

type authService struct {
	users     repositories.UserRepository
	validator *validator.Validator
	cache     *cache.CacheManager
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, cm *cache.CacheManager) AuthService {
	return &authService{
		users:     repositories.NewUserRepository(repo.Users()),
		validator: v,
		cache:     cm,
		logger:    logger,
		now:       time.Now,
	}
}

// Login checks the password against the stored hash and records the login
// time. Unknown emails and wrong passwords produce the same error.
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*models.UserResponse, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, FromValidation(errs)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewUnauthorizedError(invalidCredentials)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Warn("Failed login attempt", "user_id", user.ID)
		return nil, NewUnauthorizedError(invalidCredentials)
	}
	if !user.IsActive {
		return nil, NewUnauthorizedError("Account is deactivated")
	}

	user, err = s.users.Update(ctx, user.ID, models.Record{"lastLogin": models.FormatTime(s.now())})
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	cache.InvalidateUserCache(ctx, s.cache)

	s.logger.Info("User logged in", "user_id", user.ID)
	resp := user.ToResponse()
	return &resp, nil
}
