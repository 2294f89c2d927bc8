package services

import (
	"context"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/pipeline"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type CreateUserRequest = validator.CreateUserRequest
type UpdateUserRequest = validator.UpdateUserRequest
type CreateMenuItemRequest = validator.CreateMenuItemRequest
type UpdateMenuItemRequest = validator.UpdateMenuItemRequest
type LoginRequest = validator.LoginRequest

type UserListResponse struct {
	Users       []models.UserResponse `json:"users"`
	TotalPages  int                   `json:"totalPages"`
	CurrentPage int                   `json:"currentPage"`
	Total       int                   `json:"total"`
}

type UserStatsResponse struct {
	TotalUsers    int `json:"totalUsers"`
	ActiveUsers   int `json:"activeUsers"`
	InactiveUsers int `json:"inactiveUsers"`
	Students      int `json:"students"`
	Faculty       int `json:"faculty"`
	Admins        int `json:"admins"`
}

type MenuStatsResponse struct {
	TotalItems     int `json:"totalItems"`
	ActiveItems    int `json:"activeItems"`
	InactiveItems  int `json:"inactiveItems"`
	RootItems      int `json:"rootItems"`
	ChildItems     int `json:"childItems"`
	PublicItems    int `json:"publicItems"`
	AdminOnlyItems int `json:"adminOnlyItems"`
	FacultyItems   int `json:"facultyItems"`
}

type SeedResponse struct {
	Message string            `json:"message"`
	Count   int               `json:"count"`
	Items   []models.MenuItem `json:"items"`
}

// ===== DASHBOARD DTOs =====

type DashboardOverview struct {
	TotalUsers        int `json:"totalUsers"`
	ActiveUsers       int `json:"activeUsers"`
	InactiveUsers     int `json:"inactiveUsers"`
	NewUsersThisMonth int `json:"newUsersThisMonth"`
}

type RoleDistribution struct {
	Students int `json:"students"`
	Faculty  int `json:"faculty"`
	Admins   int `json:"admins"`
}

type DepartmentCount struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

type RecentUser struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       models.UserRole `json:"role"`
	Department string          `json:"department,omitempty"`
	CreatedAt  string          `json:"createdAt"`
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type DashboardStatsResponse struct {
	Overview         DashboardOverview `json:"overview"`
	RoleDistribution RoleDistribution  `json:"roleDistribution"`
	DepartmentStats  []DepartmentCount `json:"departmentStats"`
	RecentUsers      []RecentUser      `json:"recentUsers"`
	MonthlyStats     []MonthlyCount    `json:"monthlyStats"`
}

type ActivityResponse struct {
	Type        string          `json:"type"`
	User        string          `json:"user"`
	Email       string          `json:"email"`
	Role        models.UserRole `json:"role"`
	Timestamp   string          `json:"timestamp"`
	Description string          `json:"description"`
}

type DepartmentBreakdownResponse struct {
	Department       string         `json:"department"`
	TotalStudents    int            `json:"totalStudents"`
	ActiveStudents   int            `json:"activeStudents"`
	InactiveStudents int            `json:"inactiveStudents"`
	YearDistribution map[string]int `json:"yearDistribution"`
}

type SystemHealthResponse struct {
	TotalUsers          int     `json:"totalUsers"`
	ActiveUsers         int     `json:"activeUsers"`
	InactiveUsers       int     `json:"inactiveUsers"`
	UsersWithLogin      int     `json:"usersWithLogin"`
	EngagementRate      float64 `json:"engagementRate"`
	InactiveUsers30Days int     `json:"inactiveUsers30Days"`
	SystemStatus        string  `json:"systemStatus"`
	Storage             string  `json:"storage"`
	Cache               string  `json:"cache"`
}

// ===== SERVICE INTERFACES =====

type UserService interface {
	Create(ctx context.Context, req *CreateUserRequest) (*models.UserResponse, error)
	GetByID(ctx context.Context, id string) (*models.UserResponse, error)
	List(ctx context.Context, filters repositories.UserFilters, page, limit int) (*UserListResponse, error)
	Update(ctx context.Context, id string, req *UpdateUserRequest) (*models.UserResponse, error)
	Delete(ctx context.Context, id string) error
	GetStats(ctx context.Context) (*UserStatsResponse, error)
}

type MenuService interface {
	GetTree(ctx context.Context, role models.UserRole) ([]*models.MenuNode, error)
	GetFlat(ctx context.Context, role models.UserRole, includeInactive bool) ([]models.MenuItem, error)
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	Create(ctx context.Context, req *CreateMenuItemRequest) (*models.MenuItem, error)
	Update(ctx context.Context, id string, req *UpdateMenuItemRequest) (*models.MenuItem, error)
	Delete(ctx context.Context, id string) error
	Seed(ctx context.Context) (*SeedResponse, error)
	SeedIfEmpty(ctx context.Context) (bool, error)
	GetStats(ctx context.Context) (*MenuStatsResponse, error)

	// InvalidateCache drops cached trees without publishing an event.
	InvalidateCache(ctx context.Context) error
}

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStatsResponse, error)
	GetRecentActivity(ctx context.Context, limit int) ([]ActivityResponse, error)
	GetDepartmentBreakdown(ctx context.Context) ([]DepartmentBreakdownResponse, error)
	GetSystemHealth(ctx context.Context) (*SystemHealthResponse, error)
	Aggregate(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error)
}

type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*models.UserResponse, error)
}

type ExportService interface {
	// ExportUsers writes every user to an XLSX workbook.
	ExportUsers(ctx context.Context) ([]byte, error)
}

// ServiceManager owns every service and their shared dependencies.
type ServiceManager interface {
	User() UserService
	Menu() MenuService
	Dashboard() DashboardService
	Auth() AuthService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
