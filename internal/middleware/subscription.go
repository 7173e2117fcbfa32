package middleware

import (
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"time"     // Expiry check

	"reservily/internal/domain"       // Domain models
	"reservily/internal/subscription" // Subscription rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// RequireActiveSubscription blocks doctors whose listing is not paid up.
// Other roles pass through untouched. An expired ACTIVE listing is flipped
// to INACTIVE on the spot.
func RequireActiveSubscription(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.Role != domain.RoleDoctor {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		var profile domain.DoctorProfile
		if err := db.WithContext(ctx).Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(c, http.StatusForbidden, "Doctor profile not found. Please complete your profile setup.")
				return
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		if profile.SubscriptionStatus != domain.SubscriptionActive {
			abort(c, http.StatusForbidden, "Your subscription is not active. Please complete payment to activate your account.")
			return
		}

		if profile.SubscriptionExpiresAt != nil && profile.SubscriptionExpiresAt.Before(time.Now()) {
			if err := subscription.Expire(ctx, db, profile.ID); err != nil {
				_ = c.Error(err)
				c.Abort()
				return
			}
			logrus.WithFields(logrus.Fields{"doctor_id": profile.ID, "user_id": user.ID}).Info("subscription expired")
			abort(c, http.StatusForbidden, "Your subscription has expired. Please renew to continue.")
			return
		}

		c.Set(DoctorProfileKey, &profile)
		c.Next()
	}
}
