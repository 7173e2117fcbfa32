package middleware

import (
	"errors"   // Error classification
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/go-playground/validator/v10" // Validation errors
	"github.com/golang-jwt/jwt/v5"           // JWT errors
	"github.com/sirupsen/logrus"             // Structured logging
	"gorm.io/gorm"                           // GORM errors
)

// ErrorHandler turns errors pushed with c.Error into JSON responses.
// Handlers that already wrote a response are left alone.
func ErrorHandler(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, message := classify(err)

		entry := logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		})
		if status >= http.StatusInternalServerError {
			entry.WithError(err).Error("request failed")
		} else {
			entry.WithError(err).Warn("request rejected")
		}

		body := gin.H{"success": false, "message": message}
		if debug && status >= http.StatusInternalServerError {
			body["error"] = err.Error()
		}
		c.JSON(status, body)
	}
}

func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "Record not found."
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, "A record with this value already exists."
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return http.StatusBadRequest, "Related record not found."
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, "Validation failed"
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired. Please log in again."
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenInvalidClaims):
		return http.StatusUnauthorized, "Invalid token."
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// NotFound answers routes that match nothing
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found: " + c.Request.URL.Path})
	}
}
