package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/college-portal-service/internal/utils"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Storage string `json:"storage"`
}

type HealthHandler struct {
	BaseHandler
	check   func(ctx context.Context) error
	storage string
}

func NewHealthHandler(check func(ctx context.Context) error, storage string, logger utils.Logger) *HealthHandler {
	return &HealthHandler{
		BaseHandler: NewBaseHandler(logger),
		check:       check,
		storage:     storage,
	}
}

// HealthCheck reports whether storage and cache answer
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if err := h.check(c.Request.Context()); err != nil {
		h.LogError(c, err, "Health check failed")
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:  "ERROR",
			Message: err.Error(),
			Storage: h.storage,
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:  "OK",
		Message: fmt.Sprintf("API Server is running with %s data storage", h.storage),
		Storage: h.storage,
	})
}
