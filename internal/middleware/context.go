package middleware

import (
	"reservily/internal/domain" // Domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by the auth chain
const (
	UserKey          = "user"
	UserIDKey        = "userID"
	RoleKey          = "role"
	DoctorProfileKey = "doctorProfile"
)

// CurrentUser returns the user loaded by Protect, or nil
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(UserKey); ok {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return nil
}

// CurrentDoctorProfile returns the profile loaded by RequireActiveSubscription, or nil
func CurrentDoctorProfile(c *gin.Context) *domain.DoctorProfile {
	if v, ok := c.Get(DoctorProfileKey); ok {
		if profile, ok := v.(*domain.DoctorProfile); ok {
			return profile
		}
	}
	return nil
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
