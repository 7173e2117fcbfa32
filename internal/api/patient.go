package api

import (
	"net/http" // HTTP status codes
	"strings"  // Input trimming

	"reservily/internal/domain"     // Importing domain models
	"reservily/internal/middleware" // Current user lookup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// UpdatePatientProfileRequest is the patient profile update body
type UpdatePatientProfileRequest struct {
	Name *string `json:"name" binding:"omitempty,min=2,max=100"`
}

// PatientProfileHandler returns the caller's account
func PatientProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		ok(c, http.StatusOK, "", gin.H{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"createdAt": user.CreatedAt,
		})
	}
}

// UpdatePatientProfileHandler renames the caller
func UpdatePatientProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdatePatientProfileRequest
		if !bindJSON(c, &req) {
			return
		}
		user := middleware.CurrentUser(c)
		ctx := c.Request.Context()
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", user.ID).Update("name", name).Error; err != nil {
				_ = c.Error(err)
				return
			}
			logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("Patient profile updated")
		}
		var updated domain.User
		if err := db.WithContext(ctx).First(&updated, "id = ?", user.ID).Error; err != nil {
			_ = c.Error(err)
			return
		}
		ok(c, http.StatusOK, "Profile updated.", gin.H{
			"id":        updated.ID,
			"name":      updated.Name,
			"email":     updated.Email,
			"role":      updated.Role,
			"updatedAt": updated.UpdatedAt,
		})
	}
}

// PatientAppointmentsHandler lists the caller's bookings, earliest first
func PatientAppointmentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, valid := statusFilter(c)
		if !valid {
			return
		}
		user := middleware.CurrentUser(c)
		page, limit, offset := pageParams(c, 20)
		ctx := c.Request.Context()

		query := func() *gorm.DB {
			q := db.WithContext(ctx).Model(&domain.Appointment{}).Where("patient_id = ?", user.ID)
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
		if err := query().Preload("Doctor.User").Order("date asc").Order("time asc").
			Offset(offset).Limit(limit).Find(&appts).Error; err != nil {
			_ = c.Error(err)
			return
		}
		okPage(c, appointmentViews(appts), newPagination(total, page, limit))
	}
}
