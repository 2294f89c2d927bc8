package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/college-portal-service/internal/pipeline"
	"github.com/SAP-F-2025/college-portal-service/internal/services"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

type DashboardHandler struct {
	BaseHandler
	service   services.DashboardService
	validator *validator.Validator
}

func NewDashboardHandler(service services.DashboardService, v *validator.Validator, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		validator:   v,
	}
}

// ===== DASHBOARD ENDPOINTS =====

// GetDashboardStats returns overall dashboard statistics
// @Summary Get dashboard statistics
// @Description Overview counters, role and department distribution, recent users and monthly registrations
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.DashboardStatsResponse
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetDashboardStats(c *gin.Context) {
	h.LogRequest(c, "Getting dashboard stats")

	stats, err := h.service.GetDashboardStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRecentActivity returns recent registrations and logins
// @Summary Get recent activity
// @Tags dashboard
// @Produce json
// @Param limit query int false "Number of activities to return (default: 10, max: 50)"
// @Success 200 {array} services.ActivityResponse
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard/activity [get]
func (h *DashboardHandler) GetRecentActivity(c *gin.Context) {
	limit := h.validator.GetBusinessValidator().ActivityLimit(c.Query("limit"))
	h.LogRequest(c, "Getting recent activity", "limit", limit)

	activities, err := h.service.GetRecentActivity(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, activities)
}

// GetDepartmentBreakdown returns per-department student counts
// @Summary Get department breakdown
// @Tags dashboard
// @Produce json
// @Success 200 {array} services.DepartmentBreakdownResponse
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard/department-breakdown [get]
func (h *DashboardHandler) GetDepartmentBreakdown(c *gin.Context) {
	h.LogRequest(c, "Getting department breakdown")

	breakdown, err := h.service.GetDepartmentBreakdown(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

// GetSystemHealth returns engagement counters and backend status
// @Summary Get system health
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.SystemHealthResponse
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard/system-health [get]
func (h *DashboardHandler) GetSystemHealth(c *gin.Context) {
	h.LogRequest(c, "Getting system health")

	health, err := h.service.GetSystemHealth(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, health)
}

// Aggregate runs a client-supplied pipeline over users
// @Summary Run aggregation
// @Description Accepts [{"$match":…},{"$group":…},{"$project":…},{"$sort":…}]
// @Tags dashboard
// @Accept json
// @Produce json
// @Success 200 {array} object
// @Failure 400 {object} ErrorResponse "Invalid pipeline"
// @Router /dashboard/aggregate [post]
func (h *DashboardHandler) Aggregate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.LogError(c, err, "Failed to read request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload"})
		return
	}

	p, err := pipeline.ParseJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid pipeline", Details: []string{err.Error()}})
		return
	}

	h.LogRequest(c, "Running aggregation", "stages", len(p))

	docs, err := h.service.Aggregate(c.Request.Context(), p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, docs)
}
