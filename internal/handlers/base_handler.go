package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/college-portal-service/internal/services"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.GetLogger(c, h.logger)
}

// LogRequest logs the start of a handler with optional key/value pairs.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	h.log(c).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	h.log(c).Error(msg, append([]any{"error", err}, args...)...)
}

// decodeBody reads the request body into dst. On failure the 400 response
// has already been written and false is returned.
func (h *BaseHandler) decodeBody(c *gin.Context, v *validator.Validator, dst any, strict bool) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.LogError(c, err, "Failed to read request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload"})
		return false
	}
	if errs := v.Decode(body, dst, strict); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: errs.Messages(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var be *services.BusinessError
	if errors.As(err, &be) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(be, services.ErrValidationFailed), errors.Is(be, services.ErrConflict), errors.Is(be, services.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(be, services.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(be, services.ErrUnauthorized):
			status = http.StatusUnauthorized
		}
		if status != http.StatusInternalServerError {
			c.JSON(status, ErrorResponse{Error: be.Message, Details: be.Details})
			return
		}
	}

	h.LogError(c, err, "Request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}
