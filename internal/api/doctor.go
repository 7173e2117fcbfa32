package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error classification
	"fmt"      // Cache keys
	"net/http" // HTTP status codes
	"strings"  // Search filters
	"time"     // Cache TTL and dates

	"reservily/internal/domain"     // Importing domain models
	"reservily/internal/middleware" // Current user lookup
	"reservily/internal/schedule"   // Slot arithmetic
	"reservily/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

const doctorSearchTTL = 60 * time.Second

// bookableDoctors limits a doctor_profiles query to ACTIVE listings of active accounts
func bookableDoctors(tx *gorm.DB) *gorm.DB {
	activeUsers := tx.Session(&gorm.Session{NewDB: true}).Model(&domain.User{}).Select("id").Where("is_active = ?", true)
	return tx.Where("doctor_profiles.subscription_status = ?", domain.SubscriptionActive).
		Where("doctor_profiles.user_id IN (?)", activeUsers)
}

// myProfile returns the caller's doctor profile, answering 404 when it is missing
func myProfile(c *gin.Context, db *gorm.DB) (*domain.DoctorProfile, bool) {
	if p := middleware.CurrentDoctorProfile(c); p != nil {
		return p, true
	}
	user := middleware.CurrentUser(c)
	var profile domain.DoctorProfile
	if err := db.WithContext(c.Request.Context()).Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Doctor profile not found.")
			return nil, false
		}
		_ = c.Error(err)
		return nil, false
	}
	return &profile, true
}

// invalidateDoctorSearch drops every cached search page
func invalidateDoctorSearch(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	if err := utils.DeleteCachePrefix(ctx, rdb, utils.DoctorSearchPrefix); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate doctor search cache")
	}
}

// ListDoctorsHandler searches bookable doctors by specialty and city
func ListDoctorsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, limit, offset := pageParams(c, 10)
		specialty := strings.ToLower(strings.TrimSpace(c.Query("specialty")))
		city := strings.ToLower(strings.TrimSpace(c.Query("city")))

		cacheKey := fmt.Sprintf("%sspecialty=%s:city=%s:page=%d:limit=%d", utils.DoctorSearchPrefix, specialty, city, page, limit)
		var cached struct {
			Data       []doctorView `json:"data"`
			Pagination Pagination   `json:"pagination"`
		}
		if rdb != nil {
			if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
				okPage(c, cached.Data, cached.Pagination)
				return
			}
		}

		// Build a fresh query for count and page
		query := func() *gorm.DB {
			q := db.WithContext(ctx).Model(&domain.DoctorProfile{}).Scopes(bookableDoctors)
			if specialty != "" {
				q = q.Where("LOWER(doctor_profiles.specialty) LIKE ?", "%"+specialty+"%")
			}
			if city != "" {
				q = q.Where("LOWER(doctor_profiles.city) LIKE ?", "%"+city+"%")
			}
			return q
		}

		var total int64
		if err := query().Count(&total).Error; err != nil {
			_ = c.Error(err)
			return
		}
		var profiles []domain.DoctorProfile
		if err := query().Preload("User").Preload("Availability").
			Order("doctor_profiles.created_at desc").Offset(offset).Limit(limit).
			Find(&profiles).Error; err != nil {
			_ = c.Error(err)
			return
		}
		for i := range profiles {
			sortByWeekday(profiles[i].Availability)
		}

		views := doctorViews(profiles)
		pagination := newPagination(total, page, limit)
		if rdb != nil {
			_ = utils.SetCache(ctx, rdb, cacheKey, gin.H{"data": views, "pagination": pagination}, doctorSearchTTL)
		}
		okPage(c, views, pagination)
	}
}

// GetDoctorHandler returns one bookable doctor
func GetDoctorHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var profile domain.DoctorProfile
		err := db.WithContext(c.Request.Context()).Scopes(bookableDoctors).
			Preload("User").Preload("Availability").
			Where("doctor_profiles.id = ?", c.Param("id")).First(&profile).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "Doctor not found.")
				return
			}
			_ = c.Error(err)
			return
		}
		sortByWeekday(profile.Availability)
		ok(c, http.StatusOK, "", doctorViewOf(&profile))
	}
}

// DoctorSlotsHandler lists the free slot start times of a doctor on a date
func DoctorSlotsHandler(db *gorm.DB, slotMinutes int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		parsed, err := schedule.ParseDate(c.Query("date"))
		if err != nil {
			fail(c, http.StatusBadRequest, "date query parameter must be YYYY-MM-DD.")
			return
		}
		now := time.Now().UTC()
		day := schedule.Day(parsed)
		today := schedule.Day(now)
		if day.Before(today) {
			fail(c, http.StatusBadRequest, "date must not be in the past.")
			return
		}

		var profile domain.DoctorProfile
		if err := db.WithContext(ctx).Scopes(bookableDoctors).
			Where("doctor_profiles.id = ?", c.Param("id")).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "Doctor not found.")
				return
			}
			_ = c.Error(err)
			return
		}

		weekday := domain.WeekdayOf(day)
		data := gin.H{"doctorId": profile.ID, "date": day.Format(time.DateOnly), "dayOfWeek": weekday, "slots": []string{}}

		var window domain.Availability
		if err := db.WithContext(ctx).Where("doctor_id = ? AND day_of_week = ?", profile.ID, weekday).First(&window).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ok(c, http.StatusOK, fmt.Sprintf("Doctor is not available on %s.", weekday), data)
				return
			}
			_ = c.Error(err)
			return
		}

		slots, err := schedule.Slots(window.StartTime, window.EndTime, slotMinutes)
		if err != nil {
			_ = c.Error(err)
			return
		}
		var taken []string
		if err := db.WithContext(ctx).Model(&domain.Appointment{}).
			Where(map[string]any{"doctor_id": profile.ID, "date": day}).
			Where("status IN ?", domain.HoldingStatuses).
			Pluck("time", &taken).Error; err != nil {
			_ = c.Error(err)
			return
		}
		free := schedule.Free(slots, taken)
		if day.Equal(today) {
			free = upcoming(free, now)
		}

		data["startTime"] = window.StartTime
		data["endTime"] = window.EndTime
		data["slots"] = free
		ok(c, http.StatusOK, "", data)
	}
}

// upcoming drops slots that already started today
func upcoming(slots []string, now time.Time) []string {
	clock := now.Format("15:04")
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s > clock {
			out = append(out, s)
		}
	}
	return out
}

// UpdateDoctorProfileRequest is a partial profile update
type UpdateDoctorProfileRequest struct {
	Specialty     *string  `json:"specialty" binding:"omitempty,min=1,max=100"`
	City          *string  `json:"city" binding:"omitempty,min=1,max=100"`
	ClinicAddress *string  `json:"clinicAddress" binding:"omitempty,min=1,max=255"`
	Price         *float64 `json:"price" binding:"omitempty,gt=0"`
	Bio           *string  `json:"bio" binding:"omitempty,max=1000"`
	Experience    *int     `json:"experience" binding:"omitempty,gte=0"`
}

// UpdateDoctorProfileHandler applies the provided fields to the caller's profile
func UpdateDoctorProfileHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateDoctorProfileRequest
		if !bindJSON(c, &req) {
			return
		}
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		ctx := c.Request.Context()

		updates := map[string]any{}
		if req.Specialty != nil {
			updates["specialty"] = strings.TrimSpace(*req.Specialty)
		}
		if req.City != nil {
			updates["city"] = strings.TrimSpace(*req.City)
		}
		if req.ClinicAddress != nil {
			updates["clinic_address"] = strings.TrimSpace(*req.ClinicAddress)
		}
		if req.Price != nil {
			updates["price"] = *req.Price
		}
		if req.Bio != nil {
			updates["bio"] = *req.Bio
		}
		if req.Experience != nil {
			updates["experience"] = *req.Experience
		}
		if len(updates) > 0 {
			if err := db.WithContext(ctx).Model(&domain.DoctorProfile{}).Where("id = ?", profile.ID).Updates(updates).Error; err != nil {
				_ = c.Error(err)
				return
			}
			invalidateDoctorSearch(ctx, rdb)
			logrus.WithFields(logrus.Fields{"doctor_id": profile.ID, "fields": len(updates)}).Info("Doctor profile updated")
		}

		var updated domain.DoctorProfile
		if err := db.WithContext(ctx).Preload("User").First(&updated, "id = ?", profile.ID).Error; err != nil {
			_ = c.Error(err)
			return
		}
		ok(c, http.StatusOK, "Profile updated.", doctorViewOf(&updated))
	}
}

// DoctorAppointmentsHandler lists the caller's appointments, earliest first
func DoctorAppointmentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		status, valid := statusFilter(c)
		if !valid {
			return
		}
		page, limit, offset := pageParams(c, 20)
		ctx := c.Request.Context()

		query := func() *gorm.DB {
			q := db.WithContext(ctx).Model(&domain.Appointment{}).Where("doctor_id = ?", profile.ID)
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
		if err := query().Preload("Patient").Order("date asc").Order("time asc").
			Offset(offset).Limit(limit).Find(&appts).Error; err != nil {
			_ = c.Error(err)
			return
		}
		okPage(c, appointmentViews(appts), newPagination(total, page, limit))
	}
}
