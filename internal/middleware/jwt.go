package middleware

import (
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"reservily/internal/domain" // Domain models
	"reservily/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Protect validates the bearer token and loads the caller from the database
func Protect(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abort(c, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			if utils.IsExpired(err) {
				abort(c, http.StatusUnauthorized, "Token expired. Please log in again.")
				return
			}
			abort(c, http.StatusUnauthorized, "Invalid token.")
			return
		}

		// Re-read the user so suspensions and role changes apply immediately
		var user domain.User
		if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(c, http.StatusUnauthorized, "User no longer exists.")
				return
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !user.IsActive {
			abort(c, http.StatusForbidden, "Your account has been suspended.")
			return
		}

		c.Set(UserKey, &user)     // Store the loaded user in context
		c.Set(UserIDKey, user.ID) // Store userID in context
		c.Set(RoleKey, user.Role) // Store role in context
		c.Next()                  // Proceed to the next handler
	}
}
