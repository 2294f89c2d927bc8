package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/college-portal-service/internal/services"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

type HandlerManager struct {
	menuHandler      *MenuHandler
	userHandler      *UserHandler
	authHandler      *AuthHandler
	dashboardHandler *DashboardHandler
	healthHandler    *HealthHandler
}

// NewHandlerManager builds every handler. serviceManager must be initialized.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	storage string,
) *HandlerManager {
	return &HandlerManager{
		menuHandler:      NewMenuHandler(serviceManager.Menu(), validator, logger),
		userHandler:      NewUserHandler(serviceManager.User(), serviceManager.Export(), validator, logger),
		authHandler:      NewAuthHandler(serviceManager.Auth(), validator, logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), validator, logger),
		healthHandler: NewHealthHandler(func(ctx context.Context) error {
			return serviceManager.HealthCheck(ctx)
		}, storage, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/health", hm.healthHandler.HealthCheck)

		// Menu routes
		menu := api.Group("/menu")
		{
			menu.GET("", hm.menuHandler.GetMenuTree)
			menu.GET("/flat", hm.menuHandler.GetFlatMenu)
			menu.GET("/stats/overview", hm.menuHandler.GetMenuStats)
			menu.POST("/seed", hm.menuHandler.SeedMenu)
			menu.GET("/:id", hm.menuHandler.GetMenuItem)
			menu.POST("", hm.menuHandler.CreateMenuItem)
			menu.PUT("/:id", hm.menuHandler.UpdateMenuItem)
			menu.DELETE("/:id", hm.menuHandler.DeleteMenuItem)
		}

		// User routes
		users := api.Group("/users")
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/stats/overview", hm.userHandler.GetUserStats)
			users.GET("/export", hm.userHandler.ExportUsers)
			users.GET("/:id", hm.userHandler.GetUser)
			users.POST("", hm.userHandler.CreateUser)
			users.PUT("/:id", hm.userHandler.UpdateUser)
			users.DELETE("/:id", hm.userHandler.DeleteUser)
		}

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", hm.authHandler.Login)
		}

		// Dashboard routes
		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("/stats", hm.dashboardHandler.GetDashboardStats)
			dashboard.GET("/activity", hm.dashboardHandler.GetRecentActivity)
			dashboard.GET("/department-breakdown", hm.dashboardHandler.GetDepartmentBreakdown)
			dashboard.GET("/system-health", hm.dashboardHandler.GetSystemHealth)
			dashboard.POST("/aggregate", hm.dashboardHandler.Aggregate)
		}
	}
}
