package middleware

import (
	"net/http" // HTTP status codes
	"slices"   // Role lookup
	"strings"  // Message building

	"reservily/internal/domain" // Domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// Authorize lets the request through only when the caller has one of roles.
// It must run after Protect.
func Authorize(roles ...domain.Role) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	denied := "Access denied. Required role: " + strings.Join(names, " or ") + "."

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abort(c, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		if !slices.Contains(roles, user.Role) {
			abort(c, http.StatusForbidden, denied)
			return
		}
		c.Next()
	}
}
