// Package handler holds the HTTP handlers. Handlers bind and validate input,
// call a service and render the result; errors are attached with c.Error and
// rendered by middleware.ErrorHandler.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/auth"
	"gamehub/backend/internal/i18n"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// region --- Shared DTOs ---

// ErrorResponse represents a localized error response.
type ErrorResponse struct {
	Error  string              `json:"error" example:"Game not found"`
	Code   string              `json:"code" example:"NOT_FOUND"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

// MessageResponse carries a localized confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"Logged out"`
}

// IDsInput is the body of batch endpoints.
type IDsInput struct {
	IDs []uint `json:"ids" binding:"required,min=1,max=100"`
}

// ListQuery holds the pagination and sort parameters shared by list endpoints.
type ListQuery struct {
	Page  int    `form:"page" binding:"omitempty,min=1"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort  string `form:"sort"`
}

// endregion

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bindJSON binds the body into dst. Validation failures are rendered field by
// field; anything else is a malformed body.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, bindError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			abort(c, err)
		} else {
			abort(c, apperr.Validation("error.invalid_query", map[string]string{"param": err.Error()}))
		}
		return false
	}
	return true
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return err
	}
	return apperr.Validation("error.invalid_body", nil)
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		abort(c, apperr.Validation("error.invalid_id", nil))
		return 0, false
	}
	return uint(id), true
}

// parseIDList parses a comma separated list of ids, skipping blanks.
func parseIDList(s string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// actor builds the service caller from the authenticated context.
func actor(c *gin.Context) service.Actor {
	return service.Actor{ID: auth.UserID(c), Role: auth.Role(c)}
}

func message(c *gin.Context, status int, key string, params map[string]string) {
	c.JSON(status, MessageResponse{Message: i18n.T(c, key, params)})
}

func deleted(c *gin.Context, resource string) {
	message(c, http.StatusOK, "message.deleted", map[string]string{"resource": i18n.T(c, "resource."+resource, nil)})
}
