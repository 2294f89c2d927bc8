package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/college-portal-service/internal/services"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

type AuthHandler struct {
	BaseHandler
	service   services.AuthService
	validator *validator.Validator
}

func NewAuthHandler(service services.AuthService, v *validator.Validator, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		validator:   v,
	}
}

// Login verifies credentials and returns the user
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.LoginRequest true "Email and password"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Invalid email or password"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.decodeBody(c, h.validator, &req, false) {
		return
	}

	h.LogRequest(c, "Login attempt")

	user, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
