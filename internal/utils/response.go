// internal/utils/response.go
package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/i18n"
	"github.com/marketua/marketplace-backend/internal/models"
)

const (
	ContextUserKey = "user"
	ContextLangKey = "lang"
)

type ErrorBody struct {
	Type   string                `json:"type"`
	Errors []apperror.FieldError `json:"errors"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func CreatedEmptyResponse(c *gin.Context) {
	c.Status(http.StatusCreated)
}

func NoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	c.JSON(http.StatusOK, result)
}

// ErrorResponse renders err as {type, errors:[{code, detail, attr}]}.
// Anything that is not an *apperror.Error is logged and rendered as a 500
// without leaking its message.
func ErrorResponse(c *gin.Context, err error) {
	appErr := ToAppError(err)

	if appErr.Kind() == apperror.KindServer {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Unhandled error")
	}

	lang := GetLangFromContext(c)
	entries := appErr.Errors()
	rendered := make([]apperror.FieldError, 0, len(entries))
	for _, fe := range entries {
		fe.Detail = i18n.TDefault(lang, "error."+fe.Code, fe.Detail)
		rendered = append(rendered, fe)
	}

	c.AbortWithStatusJSON(appErr.HTTPStatus(), ErrorBody{
		Type:   appErr.Type(),
		Errors: rendered,
	})
}

// ToAppError classifies err. Record-not-found becomes not_found; everything
// unknown becomes a server error.
func ToAppError(err error) *apperror.Error {
	if appErr := apperror.As(err); appErr != nil {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound()
	}
	return apperror.Server(err)
}

// BindError converts a JSON binding failure into a parse error.
func BindError(err error) error {
	return apperror.Wrap(apperror.KindValidation, err, apperror.CodeParseError, "Malformed request body.")
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get(ContextLangKey); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return i18n.DefaultLang
}

// GetUserFromContext returns the authenticated user, or nil for anonymous
// requests.
func GetUserFromContext(c *gin.Context) *models.User {
	if v, exists := c.Get(ContextUserKey); exists {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
