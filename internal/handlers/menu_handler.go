package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/services"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

type MenuHandler struct {
	BaseHandler
	service   services.MenuService
	validator *validator.Validator
}

func NewMenuHandler(service services.MenuService, v *validator.Validator, logger utils.Logger) *MenuHandler {
	return &MenuHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		validator:   v,
	}
}

// GetMenuTree returns the active menu forest visible to a role
// @Summary Get menu tree
// @Tags menu
// @Produce json
// @Param role query string false "Viewer role (student, faculty, admin)"
// @Success 200 {array} models.MenuNode
// @Failure 500 {object} ErrorResponse
// @Router /menu [get]
func (h *MenuHandler) GetMenuTree(c *gin.Context) {
	role := models.UserRole(c.Query("role"))
	h.LogRequest(c, "Getting menu tree", "role", role)

	tree, err := h.service.GetTree(c.Request.Context(), role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tree)
}

// GetFlatMenu returns menu items as a flat ordered list
// @Summary Get flat menu
// @Tags menu
// @Produce json
// @Param role query string false "Viewer role"
// @Param includeInactive query bool false "Include inactive items"
// @Success 200 {array} models.MenuItem
// @Failure 400 {object} ErrorResponse
// @Router /menu/flat [get]
func (h *MenuHandler) GetFlatMenu(c *gin.Context) {
	role := models.UserRole(c.Query("role"))
	includeInactive := false
	if raw := c.Query("includeInactive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "includeInactive must be a boolean"})
			return
		}
		includeInactive = v
	}

	h.LogRequest(c, "Getting flat menu", "role", role, "include_inactive", includeInactive)

	items, err := h.service.GetFlat(c.Request.Context(), role, includeInactive)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetMenuItem retrieves a menu item by ID
// @Summary Get menu item
// @Tags menu
// @Produce json
// @Param id path string true "Menu item ID"
// @Success 200 {object} models.MenuItem
// @Failure 404 {object} ErrorResponse
// @Router /menu/{id} [get]
func (h *MenuHandler) GetMenuItem(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Getting menu item", "menu_item_id", id)

	item, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// CreateMenuItem creates a menu item
// @Summary Create menu item
// @Tags menu
// @Accept json
// @Produce json
// @Param item body services.CreateMenuItemRequest true "Menu item"
// @Success 201 {object} models.MenuItem
// @Failure 400 {object} ErrorResponse
// @Router /menu [post]
func (h *MenuHandler) CreateMenuItem(c *gin.Context) {
	var req services.CreateMenuItemRequest
	if !h.decodeBody(c, h.validator, &req, false) {
		return
	}

	h.LogRequest(c, "Creating menu item", "label", req.Label)

	item, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// UpdateMenuItem applies a partial update
// @Summary Update menu item
// @Tags menu
// @Accept json
// @Produce json
// @Param id path string true "Menu item ID"
// @Param item body services.UpdateMenuItemRequest true "Fields to change"
// @Success 200 {object} models.MenuItem
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /menu/{id} [put]
func (h *MenuHandler) UpdateMenuItem(c *gin.Context) {
	id := c.Param("id")

	var req services.UpdateMenuItemRequest
	if !h.decodeBody(c, h.validator, &req, false) {
		return
	}

	h.LogRequest(c, "Updating menu item", "menu_item_id", id)

	item, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteMenuItem deletes a childless menu item
// @Summary Delete menu item
// @Tags menu
// @Produce json
// @Param id path string true "Menu item ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Item has children"
// @Failure 404 {object} ErrorResponse
// @Router /menu/{id} [delete]
func (h *MenuHandler) DeleteMenuItem(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Deleting menu item", "menu_item_id", id)

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Menu item deleted successfully"})
}

// SeedMenu replaces the menu with the default portal menu
// @Summary Seed menu
// @Tags menu
// @Produce json
// @Success 201 {object} services.SeedResponse
// @Router /menu/seed [post]
func (h *MenuHandler) SeedMenu(c *gin.Context) {
	h.LogRequest(c, "Seeding menu")

	resp, err := h.service.Seed(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetMenuStats returns menu counters
// @Summary Menu statistics
// @Tags menu
// @Produce json
// @Success 200 {object} services.MenuStatsResponse
// @Router /menu/stats/overview [get]
func (h *MenuHandler) GetMenuStats(c *gin.Context) {
	h.LogRequest(c, "Getting menu stats")

	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
