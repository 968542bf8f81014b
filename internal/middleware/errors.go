// Package middleware holds the gin middleware shared by every route.
package middleware

import (
	"errors"
	"net/http"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error as a localized JSON body.
// Handlers only attach the error and abort.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, body := Render(c, err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(err),
			)
		}
		c.JSON(status, body)
	}
}

// Render maps err to a status and a localized body.
func Render(c *gin.Context, err error) (int, apperr.Response) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp := apperr.Response{
			Error: i18n.T(c, "error.validation_failed", nil),
			Code:  string(apperr.KindValidation),
		}
		if b, ok := i18n.FromContext(c); ok {
			resp.Fields = b.TranslateValidation(i18n.Locale(c), verrs)
		}
		return http.StatusBadRequest, resp
	}

	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}

	params := appErr.Params
	if resource, ok := params["resource"]; ok {
		translated := make(map[string]string, len(params))
		for k, v := range params {
			translated[k] = v
		}
		translated["resource"] = i18n.T(c, "resource."+resource, nil)
		params = translated
	}

	return apperr.Status(appErr), apperr.Response{
		Error: i18n.T(c, appErr.Key, params),
		Code:  appErr.Code,
	}
}
