package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/services"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type UserHandler struct {
	BaseHandler
	service   services.UserService
	export    services.ExportService
	validator *validator.Validator
}

func NewUserHandler(service services.UserService, export services.ExportService, v *validator.Validator, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		export:      export,
		validator:   v,
	}
}

// ListUsers lists users with optional filtering
// @Summary List users
// @Description Get a paginated list of users, newest first
// @Tags users
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Page size (default: 10, max: 100)"
// @Param search query string false "Search query (name or email)"
// @Param role query string false "Filter by role (student, faculty, admin)"
// @Param department query string false "Filter by department"
// @Success 200 {object} services.UserListResponse
// @Failure 400 {object} ErrorResponse "Invalid pagination parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var q validator.UserListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters", Details: []string{err.Error()}})
		return
	}

	page, limit, errs := h.validator.GetBusinessValidator().ValidatePagination(q.Page, q.Limit)
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid pagination parameters",
			Details: errs.Messages(),
		})
		return
	}

	h.LogRequest(c, "Listing users", "page", page, "limit", limit)

	filters := repositories.UserFilters{
		Query:      q.Search,
		Role:       q.Role,
		Department: q.Department,
	}
	resp, err := h.service.List(c.Request.Context(), filters, page, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetUser retrieves a user by ID
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.UserResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Getting user", "user_id", id)

	user, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUser registers a user
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param user body services.CreateUserRequest true "User data"
// @Success 201 {object} models.UserResponse
// @Failure 400 {object} ErrorResponse "Validation failed or duplicate email/student id"
// @Router /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if !h.decodeBody(c, h.validator, &req, false) {
		return
	}

	h.LogRequest(c, "Creating user", "role", req.Role)

	user, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser applies a partial update; unknown fields are rejected
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body services.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id := c.Param("id")

	var req services.UpdateUserRequest
	if !h.decodeBody(c, h.validator, &req, true) {
		return
	}

	h.LogRequest(c, "Updating user", "user_id", id)

	user, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user
// @Summary Delete user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Deleting user", "user_id", id)

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// GetUserStats returns user counters
// @Summary User statistics
// @Tags users
// @Produce json
// @Success 200 {object} services.UserStatsResponse
// @Router /users/stats/overview [get]
func (h *UserHandler) GetUserStats(c *gin.Context) {
	h.LogRequest(c, "Getting user stats")

	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportUsers downloads every user as an XLSX workbook
// @Summary Export users
// @Tags users
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /users/export [get]
func (h *UserHandler) ExportUsers(c *gin.Context) {
	h.LogRequest(c, "Exporting users")

	data, err := h.export.ExportUsers(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="users.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
