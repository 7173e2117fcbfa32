package api

import (
	"fmt"      // Messages
	"net/http" // HTTP status codes
	"sort"     // Weekday ordering

	"reservily/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/clause"          // Upsert clause
)

// sortByWeekday orders windows Monday first
func sortByWeekday(windows []domain.Availability) {
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].DayOfWeek.Index() < windows[j].DayOfWeek.Index()
	})
}

// AvailabilityRequest sets the window for one weekday
type AvailabilityRequest struct {
	DayOfWeek domain.Weekday `json:"dayOfWeek" binding:"required,weekday"`
	StartTime string         `json:"startTime" binding:"required,hhmm"`
	EndTime   string         `json:"endTime" binding:"required,hhmm"`
}

// MyAvailabilityHandler lists the caller's weekly windows
func MyAvailabilityHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		var windows []domain.Availability
		if err := db.WithContext(c.Request.Context()).Where("doctor_id = ?", profile.ID).Find(&windows).Error; err != nil {
			_ = c.Error(err)
			return
		}
		sortByWeekday(windows)
		ok(c, http.StatusOK, "", windows)
	}
}

// SetAvailabilityHandler creates or replaces the window for a weekday
func SetAvailabilityHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AvailabilityRequest
		if !bindJSON(c, &req) {
			return
		}
		// Zero-padded HH:MM compares correctly as text
		if req.StartTime >= req.EndTime {
			fail(c, http.StatusBadRequest, "startTime must be before endTime.")
			return
		}
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		ctx := c.Request.Context()

		window := domain.Availability{DoctorID: profile.ID, DayOfWeek: req.DayOfWeek, StartTime: req.StartTime, EndTime: req.EndTime}
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "day_of_week"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_time", "end_time", "updated_at"}),
		}).Create(&window).Error
		if err != nil {
			_ = c.Error(err)
			return
		}
		// Re-read: on update the stored row keeps its original id
		var stored domain.Availability
		if err := db.WithContext(ctx).Where("doctor_id = ? AND day_of_week = ?", profile.ID, req.DayOfWeek).First(&stored).Error; err != nil {
			_ = c.Error(err)
			return
		}
		invalidateDoctorSearch(ctx, rdb)

		logrus.WithFields(logrus.Fields{
			"doctor_id": profile.ID,
			"day":       stored.DayOfWeek,
			"start":     stored.StartTime,
			"end":       stored.EndTime,
		}).Info("Availability set")
		ok(c, http.StatusCreated, "Availability updated.", stored)
	}
}

// DeleteAvailabilityHandler removes the window for a weekday
func DeleteAvailabilityHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, valid := domain.ParseWeekday(c.Param("dayOfWeek"))
		if !valid {
			fail(c, http.StatusBadRequest, "Invalid day of week.")
			return
		}
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		ctx := c.Request.Context()
		if err := db.WithContext(ctx).Where("doctor_id = ? AND day_of_week = ?", profile.ID, day).
			Delete(&domain.Availability{}).Error; err != nil {
			_ = c.Error(err)
			return
		}
		invalidateDoctorSearch(ctx, rdb)
		logrus.WithFields(logrus.Fields{"doctor_id": profile.ID, "day": day}).Info("Availability removed")
		ok(c, http.StatusOK, fmt.Sprintf("Availability for %s removed.", day), nil)
	}
}
