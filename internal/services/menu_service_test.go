package services

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/SAP-F-2025/college-portal-service/internal/events"
	"github.com/SAP-F-2025/college-portal-service/internal/menutree"
	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

func seededMenu(t *testing.T) (*testEnv, MenuService) {
	t.Helper()
	env := newTestEnv(t)
	svc := env.menuService()
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	env.publisher.ClearEvents()
	return env, svc
}

// shape renders a forest as "id[child,child]" strings for comparison.
func shape(forest []*models.MenuNode) []string {
	out := []string{}
	for _, n := range forest {
		ids := []string{}
		for _, c := range n.Children {
			ids = append(ids, c.ID)
		}
		out = append(out, n.ID+"["+strings.Join(ids, ",")+"]")
	}
	return out
}

func TestMenuService_GetTree(t *testing.T) {
	tests := []struct {
		role models.UserRole
		want []string
	}{
		{
			role: models.RoleStudent,
			want: []string{"remote-app[remote-dashboard,remote-connections]"},
		},
		{
			role: models.RoleFaculty,
			want: []string{
				"remote-app[remote-dashboard,remote-connections]",
				"admin-app[admin-reports]",
			},
		},
		{
			role: models.RoleAdmin,
			want: []string{
				"remote-app[remote-dashboard,remote-connections,remote-settings]",
				"admin-app[admin-users,admin-reports,admin-system,admin-menu-management]",
			},
		},
		{
			role: "",
			want: []string{
				"remote-app[remote-dashboard,remote-connections,remote-settings]",
				"admin-app[admin-users,admin-reports,admin-system,admin-menu-management]",
			},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			_, svc := seededMenu(t)
			got, err := svc.GetTree(context.Background(), tt.role)
			if err != nil {
				t.Fatalf("GetTree() error = %v", err)
			}
			if s := shape(got); !slices.Equal(s, tt.want) {
				t.Errorf("GetTree(%q) = %v, want %v", tt.role, s, tt.want)
			}
		})
	}
}

func TestMenuService_TreeCacheInvalidatedOnMutation(t *testing.T) {
	_, svc := seededMenu(t)
	ctx := context.Background()

	before, err := svc.GetTree(ctx, models.RoleStudent)
	if err != nil {
		t.Fatalf("GetTree() error = %v", err)
	}
	if len(before) != 1 {
		t.Fatalf("roots = %d, want 1", len(before))
	}

	if _, err := svc.Create(ctx, &CreateMenuItemRequest{Label: "Library", Order: ptr(0)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	after, err := svc.GetTree(ctx, models.RoleStudent)
	if err != nil {
		t.Fatalf("GetTree() error = %v", err)
	}
	if got := shape(after); len(got) != 2 || got[0] != "library[]" {
		t.Errorf("GetTree() after create = %v, want library first", got)
	}
}

func TestMenuService_GetFlat(t *testing.T) {
	_, svc := seededMenu(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "remote-connections", &UpdateMenuItemRequest{IsActive: ptr(false)}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tests := []struct {
		name            string
		role            models.UserRole
		includeInactive bool
		want            []string
	}{
		{
			name: "student active only",
			role: models.RoleStudent,
			want: []string{"remote-app", "remote-dashboard"},
		},
		{
			name:            "student with inactive",
			role:            models.RoleStudent,
			includeInactive: true,
			want:            []string{"remote-app", "remote-dashboard", "remote-connections"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := svc.GetFlat(ctx, tt.role, tt.includeInactive)
			if err != nil {
				t.Fatalf("GetFlat() error = %v", err)
			}
			ids := []string{}
			for _, it := range items {
				ids = append(ids, it.ID)
			}
			if !slices.Equal(ids, tt.want) {
				t.Errorf("GetFlat() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestMenuService_Create(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateMenuItemRequest
		wantID  string
		wantErr error
		wantMsg string
	}{
		{
			name:   "slug from accented label",
			req:    CreateMenuItemRequest{Label: "Quản lý Khoa", Route: "/faculty"},
			wantID: "quan-ly-khoa",
		},
		{
			name:   "taken slug falls back to a generated id",
			req:    CreateMenuItemRequest{Label: "Remote App"},
			wantID: "id-001",
		},
		{
			name:   "explicit id under an existing parent",
			req:    CreateMenuItemRequest{ID: "admin-audit", Label: "Audit", ParentID: ptr("admin-app"), RequiredRoles: []models.UserRole{models.RoleAdmin}},
			wantID: "admin-audit",
		},
		{
			name:    "duplicate id",
			req:     CreateMenuItemRequest{ID: "admin-app", Label: "Again"},
			wantErr: ErrConflict,
			wantMsg: "Menu item with this ID already exists",
		},
		{
			name:    "missing parent",
			req:     CreateMenuItemRequest{Label: "Orphan", ParentID: ptr("nope")},
			wantErr: ErrValidationFailed,
			wantMsg: "Parent menu item not found",
		},
		{
			name:    "blank label",
			req:     CreateMenuItemRequest{Label: "   "},
			wantErr: ErrValidationFailed,
			wantMsg: "Validation failed",
		},
		{
			name:    "unknown role",
			req:     CreateMenuItemRequest{Label: "Guests", RequiredRoles: []models.UserRole{"guest"}},
			wantErr: ErrValidationFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, svc := seededMenu(t)
			got, err := svc.Create(context.Background(), &tt.req)
			if tt.wantErr != nil {
				assertKind(t, err, tt.wantErr, tt.wantMsg)
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", got.ID, tt.wantID)
			}
			if !got.IsActive || got.RequiredRoles == nil {
				t.Errorf("defaults not applied: %+v", got)
			}
			evs := env.publisher.GetPublishedEvents()
			if len(evs) != 1 || evs[0].Type != events.MenuChanged {
				t.Fatalf("events = %+v, want one menu.changed", evs)
			}
		})
	}
}

func TestMenuService_Update(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		req     UpdateMenuItemRequest
		wantErr error
		wantMsg string
		check   func(t *testing.T, got *models.MenuItem)
	}{
		{
			name: "relabel keeps other fields",
			id:   "admin-users",
			req:  UpdateMenuItemRequest{Label: ptr("People")},
			check: func(t *testing.T, got *models.MenuItem) {
				if got.Label != "People" || got.Parent() != "admin-app" || got.Order != 1 {
					t.Errorf("Update() = %+v", got)
				}
			},
		},
		{
			name: "empty parent moves to root",
			id:   "admin-users",
			req:  UpdateMenuItemRequest{ParentID: validator.Some("")},
			check: func(t *testing.T, got *models.MenuItem) {
				if got.ParentID != nil {
					t.Errorf("ParentID = %v, want nil", *got.ParentID)
				}
			},
		},
		{
			name: "null parent moves to root",
			id:   "admin-users",
			req:  UpdateMenuItemRequest{ParentID: validator.Null[string]()},
			check: func(t *testing.T, got *models.MenuItem) {
				if got.ParentID != nil {
					t.Errorf("ParentID = %v, want nil", *got.ParentID)
				}
			},
		},
		{
			name: "move under another branch",
			id:   "admin-users",
			req:  UpdateMenuItemRequest{ParentID: validator.Some("remote-app")},
			check: func(t *testing.T, got *models.MenuItem) {
				if got.Parent() != "remote-app" {
					t.Errorf("Parent() = %q", got.Parent())
				}
			},
		},
		{
			name:    "own parent",
			id:      "admin-app",
			req:     UpdateMenuItemRequest{ParentID: validator.Some("admin-app")},
			wantErr: ErrValidationFailed,
			wantMsg: "Menu item cannot be its own parent",
		},
		{
			name:    "under own descendant",
			id:      "admin-app",
			req:     UpdateMenuItemRequest{ParentID: validator.Some("admin-users")},
			wantErr: ErrValidationFailed,
			wantMsg: "Menu item cannot be moved under one of its descendants",
		},
		{
			name:    "missing parent",
			id:      "admin-app",
			req:     UpdateMenuItemRequest{ParentID: validator.Some("nope")},
			wantErr: ErrValidationFailed,
			wantMsg: "Parent menu item not found",
		},
		{
			name:    "unknown item",
			id:      "nope",
			req:     UpdateMenuItemRequest{Label: ptr("x")},
			wantErr: ErrNotFound,
			wantMsg: "Menu item not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc := seededMenu(t)
			got, err := svc.Update(context.Background(), tt.id, &tt.req)
			if tt.wantErr != nil {
				assertKind(t, err, tt.wantErr, tt.wantMsg)
				return
			}
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestMenuService_DeleteWithChildrenIsRejected(t *testing.T) {
	env, svc := seededMenu(t)
	ctx := context.Background()

	err := svc.Delete(ctx, "admin-app")
	assertKind(t, err, ErrValidationFailed, "Cannot delete menu item with children. Please delete or reassign children first.")
	if _, err := svc.GetByID(ctx, "admin-app"); err != nil {
		t.Fatalf("item removed despite children: %v", err)
	}
	if n := len(env.publisher.GetPublishedEvents()); n != 0 {
		t.Errorf("published %d events for a rejected delete", n)
	}

	if err := svc.Delete(ctx, "admin-users"); err != nil {
		t.Fatalf("Delete(leaf) error = %v", err)
	}
	assertKind(t, svc.Delete(ctx, "admin-users"), ErrNotFound, "Menu item not found")
}

func TestMenuService_SeedAndStats(t *testing.T) {
	env := newTestEnv(t)
	svc := env.menuService()
	ctx := context.Background()

	seeded, err := svc.SeedIfEmpty(ctx)
	if err != nil || !seeded {
		t.Fatalf("SeedIfEmpty() = %v, %v, want true", seeded, err)
	}
	if seeded, _ := svc.SeedIfEmpty(ctx); seeded {
		t.Error("SeedIfEmpty() seeded a non-empty collection")
	}

	evs := env.publisher.GetPublishedEvents()
	if len(evs) != 1 || evs[0].Data.(events.MenuEventData).Count != len(DefaultMenu()) {
		t.Fatalf("events = %+v", evs)
	}

	stats, err := svc.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	want := MenuStatsResponse{
		TotalItems:     9,
		ActiveItems:    9,
		RootItems:      2,
		ChildItems:     7,
		PublicItems:    3,
		AdminOnlyItems: 4,
		FacultyItems:   2,
	}
	if *stats != want {
		t.Errorf("GetStats() = %+v, want %+v", *stats, want)
	}

	if _, err := svc.Update(ctx, "remote-dashboard", &UpdateMenuItemRequest{IsActive: ptr(false)}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	stats, _ = svc.GetStats(ctx)
	if stats.ActiveItems != 8 || stats.InactiveItems != 1 {
		t.Errorf("stats after deactivate = %+v", *stats)
	}

	// Reseeding restores the default forest.
	resp, err := svc.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if resp.Count != 9 || resp.Message != "Menu data seeded successfully" {
		t.Errorf("Seed() = %+v", resp)
	}
	forest := menutree.Build(resp.Items, menutree.Options{})
	if len(forest) != 2 {
		t.Errorf("seeded roots = %d, want 2", len(forest))
	}
}
