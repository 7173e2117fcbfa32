package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error classification
	"fmt"      // Messages
	"net/http" // HTTP status codes
	"strings"  // Search filters
	"time"     // Cache TTL and expiry dates

	"reservily/internal/config"       // Application configuration
	"reservily/internal/domain"       // Importing domain models
	"reservily/internal/middleware"   // Current user lookup
	"reservily/internal/notify"       // Notifications
	"reservily/internal/receipt"      // PDF receipts
	"reservily/internal/subscription" // Subscription rules
	"reservily/internal/utils"        // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/clause"          // Row locking
)

const statsTTL = 30 * time.Second

// invalidateStats drops the cached dashboard after an admin write
func invalidateStats(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	if err := utils.DeleteCache(ctx, rdb, utils.AdminStatsKey); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate admin stats")
	}
}

// PlatformStats is the admin dashboard summary
type PlatformStats struct {
	Users struct {
		Total    int64 `json:"total"`
		Doctors  int64 `json:"doctors"`
		Patients int64 `json:"patients"`
	} `json:"users"`
	Doctors struct {
		Active              int64 `json:"active"`
		PendingVerification int64 `json:"pendingVerification"`
	} `json:"doctors"`
	Appointments struct {
		Total   int64 `json:"total"`
		Pending int64 `json:"pending"`
	} `json:"appointments"`
	Payments struct {
		PendingReview int64 `json:"pendingReview"`
	} `json:"payments"`
}

// StatsHandler returns platform counters, cached for a short while
func StatsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var stats PlatformStats
		if rdb != nil {
			if found, err := utils.GetCache(ctx, rdb, utils.AdminStatsKey, &stats); err == nil && found {
				ok(c, http.StatusOK, "", stats)
				return
			}
		}

		counts := []struct {
			dest  *int64
			model any
			where map[string]any
		}{
			{&stats.Users.Total, &domain.User{}, nil},
			{&stats.Users.Doctors, &domain.User{}, map[string]any{"role": domain.RoleDoctor}},
			{&stats.Users.Patients, &domain.User{}, map[string]any{"role": domain.RolePatient}},
			{&stats.Doctors.Active, &domain.DoctorProfile{}, map[string]any{"subscription_status": domain.SubscriptionActive}},
			{&stats.Doctors.PendingVerification, &domain.DoctorProfile{}, map[string]any{"subscription_status": domain.SubscriptionPending}},
			{&stats.Appointments.Total, &domain.Appointment{}, nil},
			{&stats.Appointments.Pending, &domain.Appointment{}, map[string]any{"status": domain.AppointmentPending}},
			{&stats.Payments.PendingReview, &domain.PaymentSubmission{}, map[string]any{"is_verified": false}},
		}
		for _, q := range counts {
			tx := db.WithContext(ctx).Model(q.model)
			if q.where != nil {
				tx = tx.Where(q.where)
			}
			if err := tx.Count(q.dest).Error; err != nil {
				_ = c.Error(err)
				return
			}
		}

		if rdb != nil {
			if err := utils.SetCache(ctx, rdb, utils.AdminStatsKey, stats, statsTTL); err != nil {
				logrus.WithError(err).Warn("Failed to cache admin stats")
			}
		}
		ok(c, http.StatusOK, "", stats)
	}
}

// UserAdminResponse is a user as the admin listing shows it
type UserAdminResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Role          domain.Role           `json:"role"`
	IsActive      bool                  `json:"isActive"`
	CreatedAt     time.Time             `json:"createdAt"`
	DoctorProfile *DoctorProfileSummary `json:"doctorProfile,omitempty"`
}

// DoctorProfileSummary is the subscription state shown next to a doctor account
type DoctorProfileSummary struct {
	ID                    string                    `json:"id"`
	Specialty             string                    `json:"specialty"`
	City                  string                    `json:"city"`
	SubscriptionStatus    domain.SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time                `json:"subscriptionExpiresAt"`
}

func userAdminResponse(u *domain.User) UserAdminResponse {
	resp := UserAdminResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if p := u.DoctorProfile; p != nil {
		resp.DoctorProfile = &DoctorProfileSummary{
			ID:                    p.ID,
			Specialty:             p.Specialty,
			City:                  p.City,
			SubscriptionStatus:    p.SubscriptionStatus,
			SubscriptionExpiresAt: p.SubscriptionExpiresAt,
		}
	}
	return resp
}

// ListUsersHandler returns accounts filtered by role and name/email search, newest first
func ListUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := domain.Role(strings.ToUpper(c.Query("role")))
		if role != "" && role != domain.RoleAdmin && role != domain.RoleDoctor && role != domain.RolePatient {
			fail(c, http.StatusBadRequest, "Invalid role filter.")
			return
		}
		search := strings.ToLower(strings.TrimSpace(c.Query("search")))
		page, limit, offset := pageParams(c, 20)
		ctx := c.Request.Context()

		query := func() *gorm.DB {
			q := db.WithContext(ctx).Model(&domain.User{})
			if role != "" {
				q = q.Where("role = ?", role)
			}
			if search != "" {
				like := "%" + search + "%"
				q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
			}
			return q
		}
		var total int64
		if err := query().Count(&total).Error; err != nil {
			_ = c.Error(err)
			return
		}
		var users []domain.User
		if err := query().Preload("DoctorProfile").Order("created_at desc").
			Offset(offset).Limit(limit).Find(&users).Error; err != nil {
			_ = c.Error(err)
			return
		}
		resp := make([]UserAdminResponse, len(users))
		for i := range users {
			resp[i] = userAdminResponse(&users[i])
		}
		okPage(c, resp, newPagination(total, page, limit))
	}
}

// GetUserHandler returns one account with its doctor profile and availability
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User
		err := db.WithContext(c.Request.Context()).Preload("DoctorProfile.Availability").First(&user, "id = ?", c.Param("id")).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "User not found.")
				return
			}
			_ = c.Error(err)
			return
		}
		if user.DoctorProfile != nil {
			sortByWeekday(user.DoctorProfile.Availability)
		}
		ok(c, http.StatusOK, "", user)
	}
}

// SuspendUserHandler blocks a non-admin account
func SuspendUserHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return setUserActive(db, rdb, false)
}

// ActivateUserHandler lifts a suspension
func ActivateUserHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return setUserActive(db, rdb, true)
}

func setUserActive(db *gorm.DB, rdb *redis.Client, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var user domain.User
		if err := db.WithContext(ctx).First(&user, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "User not found.")
				return
			}
			_ = c.Error(err)
			return
		}
		if !active && user.Role == domain.RoleAdmin {
			fail(c, http.StatusForbidden, "Cannot suspend an admin account.")
			return
		}
		if err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", user.ID).Update("is_active", active).Error; err != nil {
			_ = c.Error(err)
			return
		}
		// Suspending a doctor hides them from search
		if user.Role == domain.RoleDoctor {
			invalidateDoctorSearch(ctx, rdb)
		}
		invalidateStats(ctx, rdb)

		admin := middleware.CurrentUser(c)
		logrus.WithFields(logrus.Fields{
			"admin_id":  admin.ID,
			"user_id":   user.ID,
			"is_active": active,
		}).Info("User status changed")

		message := fmt.Sprintf("User %s has been suspended.", user.Name)
		if active {
			message = fmt.Sprintf("User %s has been reactivated.", user.Name)
		}
		ok(c, http.StatusOK, message, gin.H{"id": user.ID, "isActive": active})
	}
}

// submissionView is a payment submission with its doctor
type submissionView struct {
	domain.PaymentSubmission
	Doctor *doctorView `json:"doctor,omitempty"`
}

// ListPaymentSubmissionsHandler returns submissions, optionally by verified state, newest first
func ListPaymentSubmissionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var verified *bool
		switch c.Query("verified") {
		case "":
		case "true":
			v := true
			verified = &v
		case "false":
			v := false
			verified = &v
		default:
			fail(c, http.StatusBadRequest, "verified must be true or false.")
			return
		}
		page, limit, offset := pageParams(c, 20)
		ctx := c.Request.Context()

		query := func() *gorm.DB {
			q := db.WithContext(ctx).Model(&domain.PaymentSubmission{})
			if verified != nil {
				q = q.Where("is_verified = ?", *verified)
			}
			return q
		}
		var total int64
		if err := query().Count(&total).Error; err != nil {
			_ = c.Error(err)
			return
		}
		var subs []domain.PaymentSubmission
		if err := query().Preload("Doctor.User").Order("created_at desc").
			Offset(offset).Limit(limit).Find(&subs).Error; err != nil {
			_ = c.Error(err)
			return
		}
		out := make([]submissionView, len(subs))
		for i := range subs {
			out[i] = submissionView{PaymentSubmission: subs[i], Doctor: doctorViewOf(subs[i].Doctor)}
		}
		okPage(c, out, newPagination(total, page, limit))
	}
}

// VerifyPaymentRequest sets how many months a verified payment buys
type VerifyPaymentRequest struct {
	DurationMonths *int `json:"durationMonths" binding:"omitempty,min=1,max=12"`
}

// reviewError is a refused review with its HTTP status
type reviewError struct {
	status  int
	message string
}

func (e *reviewError) Error() string { return e.message }

// VerifyPaymentHandler approves a submission and activates or extends the doctor's subscription
func VerifyPaymentHandler(db *gorm.DB, rdb *redis.Client, n notify.Notifier, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyPaymentRequest
		// The body is optional
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}
		months := 1
		if req.DurationMonths != nil {
			months = *req.DurationMonths
		}

		admin := middleware.CurrentUser(c)
		ctx := c.Request.Context()
		var sub domain.PaymentSubmission
		var profile domain.DoctorProfile

		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "id = ?", c.Param("id")).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &reviewError{http.StatusNotFound, "Payment submission not found."}
				}
				return err
			}
			if sub.IsVerified {
				return &reviewError{http.StatusBadRequest, "Payment already verified."}
			}
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&profile, "id = ?", sub.DoctorID).Error; err != nil {
				return err
			}

			now := time.Now().UTC()
			// Renewals extend the running period instead of restarting it
			from := now
			if profile.SubscriptionExpiresAt != nil && profile.SubscriptionExpiresAt.After(now) {
				from = profile.SubscriptionExpiresAt.UTC()
			}
			expiresAt := subscription.ExpiryDate(from, months)

			if err := tx.Model(&domain.PaymentSubmission{}).Where("id = ?", sub.ID).Updates(map[string]any{
				"is_verified": true,
				"verified_at": now,
				"verified_by": admin.ID,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.DoctorProfile{}).Where("id = ?", profile.ID).Updates(map[string]any{
				"subscription_status":     domain.SubscriptionActive,
				"subscription_expires_at": expiresAt,
			}).Error; err != nil {
				return err
			}
			sub.IsVerified = true
			sub.VerifiedAt = &now
			sub.VerifiedBy = &admin.ID
			profile.SubscriptionStatus = domain.SubscriptionActive
			profile.SubscriptionExpiresAt = &expiresAt
			return nil
		})
		if err != nil {
			var re *reviewError
			if errors.As(err, &re) {
				fail(c, re.status, re.message)
				return
			}
			_ = c.Error(err)
			return
		}
		invalidateDoctorSearch(ctx, rdb)
		invalidateStats(ctx, rdb)

		logrus.WithFields(logrus.Fields{
			"admin_id":      admin.ID,
			"submission_id": sub.ID,
			"doctor_id":     profile.ID,
			"months":        months,
			"expires_at":    profile.SubscriptionExpiresAt,
		}).Info("Payment verified")

		var owner domain.User
		if err := db.WithContext(ctx).First(&owner, "id = ?", profile.UserID).Error; err == nil {
			profile.User = &owner
			pdf, err := receipt.Render(receiptDetails(&sub, &profile, cfg))
			if err != nil {
				logrus.WithError(err).Warn("Failed to render receipt")
			}
			notify.Deliver(ctx, n, notify.SubscriptionActivated(&owner, *profile.SubscriptionExpiresAt, pdf))
		} else {
			logrus.WithError(err).Warn("Failed to load doctor for notification")
		}

		unit := "month"
		if months > 1 {
			unit = "months"
		}
		ok(c, http.StatusOK,
			fmt.Sprintf("Subscription activated for %d %s. Expires: %s", months, unit, profile.SubscriptionExpiresAt.Format(time.DateOnly)),
			gin.H{
				"submissionId":          sub.ID,
				"doctorId":              profile.ID,
				"subscriptionStatus":    profile.SubscriptionStatus,
				"subscriptionExpiresAt": profile.SubscriptionExpiresAt,
			})
	}
}

// RejectPaymentHandler discards a submission; doctors without a running subscription go back to INACTIVE
func RejectPaymentHandler(db *gorm.DB, rdb *redis.Client, n notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := middleware.CurrentUser(c)
		ctx := c.Request.Context()
		var sub domain.PaymentSubmission

		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("Doctor.User").First(&sub, "id = ?", c.Param("id")).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &reviewError{http.StatusNotFound, "Submission not found."}
				}
				return err
			}
			if err := tx.Delete(&domain.PaymentSubmission{}, "id = ?", sub.ID).Error; err != nil {
				return err
			}
			updates := map[string]any{
				"payment_proof_url": nil,
				"payment_reference": nil,
			}
			// A paid listing stays up until it expires; only unpaid ones go back to INACTIVE
			if sub.Doctor == nil || !subscription.IsActive(sub.Doctor.SubscriptionStatus, sub.Doctor.SubscriptionExpiresAt, time.Now().UTC()) {
				updates["subscription_status"] = domain.SubscriptionInactive
			}
			return tx.Model(&domain.DoctorProfile{}).Where("id = ?", sub.DoctorID).Updates(updates).Error
		})
		if err != nil {
			var re *reviewError
			if errors.As(err, &re) {
				fail(c, re.status, re.message)
				return
			}
			_ = c.Error(err)
			return
		}
		invalidateDoctorSearch(ctx, rdb)
		invalidateStats(ctx, rdb)

		logrus.WithFields(logrus.Fields{
			"admin_id":      admin.ID,
			"submission_id": sub.ID,
			"doctor_id":     sub.DoctorID,
		}).Info("Payment rejected")
		if sub.Doctor != nil && sub.Doctor.User != nil {
			notify.Deliver(ctx, n, notify.PaymentRejected(sub.Doctor.User))
		}
		ok(c, http.StatusOK, "Payment rejected. Doctor notified to resubmit.", nil)
	}
}

// ListAppointmentsHandler returns every appointment, newest first
func ListAppointmentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, valid := statusFilter(c)
		if !valid {
			return
		}
		page, limit, offset := pageParams(c, 20)
		ctx := c.Request.Context()

		query := func() *gorm.DB {
			q := db.WithContext(ctx).Model(&domain.Appointment{})
			if status != "" {
				q = q.Where("status = ?", status)
			}
			return q
		}
		var total int64
		if err := query().Count(&total).Error; err != nil {
			_ = c.Error(err)
			return
		}
		var appts []domain.Appointment
		if err := query().Preload("Doctor.User").Preload("Patient").Order("created_at desc").
			Offset(offset).Limit(limit).Find(&appts).Error; err != nil {
			_ = c.Error(err)
			return
		}
		okPage(c, appointmentViews(appts), newPagination(total, page, limit))
	}
}
