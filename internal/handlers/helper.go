package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// ParseIndexParam reads a non-negative position from the path. It answers
// 400 and returns false otherwise.
func ParseIndexParam(c *gin.Context, param string) (int, bool) {
	idx, err := strconv.Atoi(c.Param(param))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a non-negative integer",
		})
		return 0, false
	}
	return idx, true
}

func parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseIntQueryPtr(c *gin.Context, param string) *int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return nil
	}
	return &value
}

// parsePage reads page (1-based) and size, clamped to sane bounds.
func parsePage(c *gin.Context) (page, size int) {
	page = parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size = parseIntQuery(c, "size", defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, services.ValidationErrors{*validationError})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, businessRuleError.Message, err, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err, map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", err)
	case services.IsForbidden(err):
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err, err.Error())
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", err, err.Error())
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, err.Error())
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "Resource conflict", err, err.Error())
	case services.IsNotReady(err):
		h.RespondWithError(c, http.StatusConflict, "Not ready", err, err.Error())
	case services.IsOutOfRange(err):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "Index out of range", err, err.Error())
	case services.IsUpstream(err):
		h.RespondWithError(c, http.StatusBadGateway, "Upstream service failed", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
