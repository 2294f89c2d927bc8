package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/SAP-F-2025/college-portal-service/internal/cache"
	"github.com/SAP-F-2025/college-portal-service/internal/events"
	"github.com/SAP-F-2025/college-portal-service/internal/menutree"
	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/query"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

const menuStatsKey = "menu:overview"

type menuService struct {
	repo      repositories.MenuRepository
	validator *validator.BusinessValidator
	menuCache *cache.MenuCache
	cache     *cache.CacheManager
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewMenuService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, cm *cache.CacheManager, menuCache *cache.MenuCache, publisher events.EventPublisher) MenuService {
	return &menuService{
		repo:      repositories.NewMenuRepository(repo.MenuItems()),
		validator: v.GetBusinessValidator(),
		menuCache: menuCache,
		cache:     cm,
		publisher: publisher,
		logger:    logger,
	}
}

// GetTree returns the active items visible to role as a forest. Trees are
// cached per role until the next menu mutation.
func (s *menuService) GetTree(ctx context.Context, role models.UserRole) ([]*models.MenuNode, error) {
	var tree []*models.MenuNode
	err := s.menuCache.GetOrFetch(ctx, cache.TreeKey(string(role)), 0, func() (any, error) {
		items, err := s.repo.List(ctx, query.Eq("isActive", true))
		if err != nil {
			return nil, err
		}
		return menutree.Build(items, menutree.Options{Role: role, ActiveOnly: true}), nil
	}, &tree)
	if err != nil {
		return nil, fmt.Errorf("failed to build menu tree: %w", err)
	}
	return tree, nil
}

// GetFlat lists visible items ordered by (order, createdAt).
func (s *menuService) GetFlat(ctx context.Context, role models.UserRole, includeInactive bool) ([]models.MenuItem, error) {
	var q query.Predicate
	if !includeInactive {
		q = query.Eq("isActive", true)
	}
	items, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	return menutree.Flatten(items, menutree.Options{Role: role}), nil
}

func (s *menuService) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("Menu item not found")
		}
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return item, nil
}

func (s *menuService) Create(ctx context.Context, req *CreateMenuItemRequest) (*models.MenuItem, error) {
	s.logger.Info("Creating menu item", "id", req.ID, "label", req.Label)

	if errs := s.validator.ValidateMenuItemCreate(req); len(errs) > 0 {
		return nil, FromValidation(errs)
	}

	items, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}

	id := req.ID
	if id == "" {
		id = availableSlug(items, req.Label)
	} else if containsID(items, id) {
		return nil, NewConflictError("Menu item with this ID already exists")
	}

	parentID := deref(req.ParentID)
	item := &models.MenuItem{
		ID:            id,
		Label:         strings.TrimSpace(req.Label),
		Icon:          req.Icon,
		Route:         req.Route,
		Order:         deref(req.Order),
		IsActive:      req.IsActive == nil || *req.IsActive,
		RequiredRoles: req.RequiredRoles,
	}
	if parentID != "" {
		item.ParentID = &parentID
	}
	if item.RequiredRoles == nil {
		item.RequiredRoles = []models.UserRole{}
	}

	err = s.repo.Create(ctx, item, s.parentGuard(id, parentID))
	if errors.Is(err, repositories.ErrDuplicateID) && req.ID == "" {
		// The derived slug was taken meanwhile; fall back to a generated id.
		item.ID = ""
		err = s.repo.Create(ctx, item, s.parentGuard("", parentID))
	}
	if err != nil {
		var be *BusinessError
		switch {
		case errors.As(err, &be):
			return nil, be
		case errors.Is(err, repositories.ErrDuplicateID):
			return nil, NewConflictError("Menu item with this ID already exists")
		}
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}

	s.afterChange(ctx, events.MenuEventData{Action: "created", ItemID: item.ID, Count: 1})
	s.logger.Info("Menu item created successfully", "id", item.ID)
	return item, nil
}

// Update applies only the supplied fields. A parent must exist and must not
// be the item itself or one of its descendants.
func (s *menuService) Update(ctx context.Context, id string, req *UpdateMenuItemRequest) (*models.MenuItem, error) {
	s.logger.Info("Updating menu item", "id", id)

	if errs := s.validator.ValidateMenuItemUpdate(req); len(errs) > 0 {
		return nil, FromValidation(errs)
	}

	var guards []repositories.Guard
	if parentID := req.NewParent(); parentID != "" {
		guards = append(guards, s.parentGuard(id, parentID))
	}

	item, err := s.repo.Update(ctx, id, req.Fields(), guards...)
	if err != nil {
		var be *BusinessError
		switch {
		case errors.As(err, &be):
			return nil, be
		case repositories.IsNotFoundError(err):
			return nil, NewNotFoundError("Menu item not found")
		}
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}

	s.afterChange(ctx, events.MenuEventData{Action: "updated", ItemID: id, Count: 1})
	s.logger.Info("Menu item updated successfully", "id", id)
	return item, nil
}

// Delete removes a childless item.
func (s *menuService) Delete(ctx context.Context, id string) error {
	s.logger.Info("Deleting menu item", "id", id)

	if _, err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case repositories.IsNotFoundError(err):
			return NewNotFoundError("Menu item not found")
		case errors.Is(err, repositories.ErrHasChildren):
			return NewValidationError("Cannot delete menu item with children. Please delete or reassign children first.")
		}
		return fmt.Errorf("failed to delete menu item: %w", err)
	}

	s.afterChange(ctx, events.MenuEventData{Action: "deleted", ItemID: id, Count: 1})
	s.logger.Info("Menu item deleted successfully", "id", id)
	return nil
}

// Seed replaces the whole collection with DefaultMenu.
func (s *menuService) Seed(ctx context.Context) (*SeedResponse, error) {
	s.logger.Info("Seeding menu items")

	items, err := s.repo.ReplaceAll(ctx, DefaultMenu())
	if err != nil {
		return nil, fmt.Errorf("failed to seed menu items: %w", err)
	}

	s.afterChange(ctx, events.MenuEventData{Action: "seeded", Count: len(items)})
	s.logger.Info("Menu seeded successfully", "count", len(items))

	return &SeedResponse{
		Message: "Menu data seeded successfully",
		Count:   len(items),
		Items:   items,
	}, nil
}

// SeedIfEmpty seeds only a collection without items.
func (s *menuService) SeedIfEmpty(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to count menu items: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Seed(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *menuService) GetStats(ctx context.Context) (*MenuStatsResponse, error) {
	var stats MenuStatsResponse
	err := s.cache.Stats.CacheOrExecute(ctx, menuStatsKey, &stats, cache.StatsCacheConfig.TTL, func() (any, error) {
		return s.computeStats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *menuService) computeStats(ctx context.Context) (*MenuStatsResponse, error) {
	stats := &MenuStatsResponse{}
	counts := []struct {
		dst *int
		q   query.Predicate
	}{
		{&stats.TotalItems, nil},
		{&stats.ActiveItems, query.Eq("isActive", true)},
		{&stats.RootItems, query.Eq("parentId", nil)},
		{&stats.ChildItems, query.NotEq("parentId", nil)},
		{&stats.PublicItems, query.HasSize("requiredRoles", 0)},
		{&stats.AdminOnlyItems, query.Eq("requiredRoles", []any{string(models.RoleAdmin)})},
	}
	for _, c := range counts {
		n, err := s.repo.Count(ctx, c.q)
		if err != nil {
			return nil, fmt.Errorf("failed to count menu items: %w", err)
		}
		*c.dst = n
	}
	stats.InactiveItems = stats.TotalItems - stats.ActiveItems

	items, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	for i := range items {
		if slices.Contains(items[i].RequiredRoles, models.RoleFaculty) {
			stats.FacultyItems++
		}
	}
	return stats, nil
}

func (s *menuService) InvalidateCache(ctx context.Context) error {
	if err := s.menuCache.Invalidate(ctx); err != nil {
		return err
	}
	cache.InvalidateMenuStats(ctx, s.cache)
	return nil
}

// afterChange drops cached trees and stats, then tells other instances.
func (s *menuService) afterChange(ctx context.Context, data events.MenuEventData) {
	if err := s.InvalidateCache(ctx); err != nil {
		s.logger.Error("Failed to invalidate menu cache", "error", err)
	}
	publish(ctx, s.publisher, s.logger, events.NewEvent(events.MenuChanged, data))
}

// parentGuard checks parentID against the stored items inside the write.
func (s *menuService) parentGuard(id, parentID string) repositories.Guard {
	return repositories.MenuGuard(func(items []models.MenuItem) error {
		if errs := s.validator.ValidateParent(items, id, parentID); len(errs) > 0 {
			return NewValidationError(errs[0].Message, errs.Messages()...)
		}
		return nil
	})
}

// availableSlug derives an id from label, or returns "" so the store
// generates one when the slug is empty or taken.
func availableSlug(items []models.MenuItem, label string) string {
	slug := utils.GenerateSlug(label)
	if slug == "" || containsID(items, slug) {
		return ""
	}
	return slug
}

func containsID(items []models.MenuItem, id string) bool {
	return slices.ContainsFunc(items, func(m models.MenuItem) bool { return m.ID == id })
}

// DefaultMenu is the portal navigation installed by Seed.
func DefaultMenu() []models.MenuItem {
	item := func(id, label, icon, route, parent string, order int, roles ...models.UserRole) models.MenuItem {
		m := models.MenuItem{
			ID:            id,
			Label:         label,
			Icon:          icon,
			Route:         route,
			Order:         order,
			IsActive:      true,
			RequiredRoles: append([]models.UserRole{}, roles...),
		}
		if parent != "" {
			m.ParentID = &parent
		}
		return m
	}

	admin, faculty := models.RoleAdmin, models.RoleFaculty
	return []models.MenuItem{
		item("remote-app", "Remote Access", "Dashboard", "/remote", "", 1),
		item("remote-dashboard", "Remote Dashboard", "Dashboard", "/remote/dashboard", "remote-app", 1),
		item("remote-connections", "Connections", "People", "/remote/connections", "remote-app", 2),
		item("remote-settings", "Remote Settings", "Settings", "/remote/settings", "remote-app", 3, admin),
		item("admin-app", "Administration", "School", "/admin", "", 2, admin, faculty),
		item("admin-users", "User Management", "People", "/admin/users", "admin-app", 1, admin),
		item("admin-reports", "Admin Reports", "Assessment", "/admin/reports", "admin-app", 2, admin, faculty),
		item("admin-system", "System Settings", "Settings", "/admin/system", "admin-app", 3, admin),
		item("admin-menu-management", "Menu Management", "Settings", "/admin/menu-management", "admin-app", 4, admin),
	}
}
