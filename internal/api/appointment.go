package api

import (
	"errors"   // Error classification
	"fmt"      // Messages
	"net/http" // HTTP status codes
	"strings"  // Status wording
	"time"     // Dates

	"reservily/internal/domain"     // Importing domain models
	"reservily/internal/middleware" // Current user lookup
	"reservily/internal/notify"     // Notifications
	"reservily/internal/schedule"   // Window checks

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Row locking
)

// BookAppointmentRequest represents a booking request
type BookAppointmentRequest struct {
	DoctorID string  `json:"doctorId" binding:"required,uuid"`
	Date     string  `json:"date" binding:"required"`
	Time     string  `json:"time" binding:"required,hhmm"`
	Notes    *string `json:"notes" binding:"omitempty,max=500"`
}

// bookingError is a rejected booking with its HTTP status
type bookingError struct {
	status  int
	message string
}

func (e *bookingError) Error() string { return e.message }

// BookAppointmentHandler books a slot for the calling patient
func BookAppointmentHandler(db *gorm.DB, n notify.Notifier, slotMinutes int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookAppointmentRequest
		if !bindJSON(c, &req) {
			return
		}
		parsed, err := schedule.ParseDate(req.Date)
		if err != nil {
			validationFailed(c, []string{"date must be a valid ISO 8601 date"})
			return
		}
		now := time.Now().UTC()
		day := schedule.Day(parsed)
		today := schedule.Day(now)
		if day.Before(today) || (day.Equal(today) && req.Time <= now.Format("15:04")) {
			validationFailed(c, []string{"date must not be in the past"})
			return
		}

		patient := middleware.CurrentUser(c)
		ctx := c.Request.Context()
		var appt domain.Appointment

		// Check-then-insert runs under a lock on the doctor row so two
		// patients cannot both take the same slot
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var doctor domain.DoctorProfile
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(bookableDoctors).
				Where("doctor_profiles.id = ?", req.DoctorID).First(&doctor).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &bookingError{http.StatusNotFound, "Doctor not found or not available for booking."}
				}
				return err
			}

			weekday := domain.WeekdayOf(day)
			var window domain.Availability
			if err := tx.Where("doctor_id = ? AND day_of_week = ?", doctor.ID, weekday).First(&window).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &bookingError{http.StatusBadRequest, fmt.Sprintf("Doctor is not available on %s.", weekday)}
				}
				return err
			}
			if !schedule.Within(req.Time, window.StartTime, window.EndTime) {
				return &bookingError{http.StatusBadRequest,
					fmt.Sprintf("Doctor is available from %s to %s on %s.", window.StartTime, window.EndTime, weekday)}
			}
			// Bookings must start on the slot grid offered by /slots
			if !schedule.OnGrid(req.Time, window.StartTime, window.EndTime, slotMinutes) {
				return &bookingError{http.StatusBadRequest,
					fmt.Sprintf("Appointments start every %d minutes from %s.", slotMinutes, window.StartTime)}
			}

			var taken int64
			if err := tx.Model(&domain.Appointment{}).
				Where(map[string]any{"doctor_id": doctor.ID, "date": day, "time": req.Time}).
				Where("status IN ?", domain.HoldingStatuses).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return &bookingError{http.StatusConflict, "This time slot is already booked."}
			}

			appt = domain.Appointment{
				DoctorID:  doctor.ID,
				PatientID: patient.ID,
				Date:      day,
				Time:      req.Time,
				Status:    domain.AppointmentPending,
				Notes:     req.Notes,
			}
			return tx.Create(&appt).Error
		})
		if err != nil {
			var be *bookingError
			if errors.As(err, &be) {
				fail(c, be.status, be.message)
				return
			}
			logrus.WithFields(logrus.Fields{"patient_id": patient.ID, "doctor_id": req.DoctorID, "error": err.Error()}).Error("Booking failed")
			_ = c.Error(err)
			return
		}

		var booked domain.Appointment
		if err := db.WithContext(ctx).Preload("Doctor.User").Preload("Patient").First(&booked, "id = ?", appt.ID).Error; err != nil {
			_ = c.Error(err)
			return
		}

		logrus.WithFields(logrus.Fields{
			"appointment_id": booked.ID,
			"patient_id":     patient.ID,
			"doctor_id":      booked.DoctorID,
			"date":           booked.Date.Format(time.DateOnly),
			"time":           booked.Time,
		}).Info("Appointment booked")

		notify.Deliver(ctx, n, notify.AppointmentBooked(patient, doctorName(booked.Doctor), &booked))
		if booked.Doctor != nil && booked.Doctor.User != nil {
			notify.Deliver(ctx, n, notify.AppointmentRequested(booked.Doctor.User, patient.Name, &booked))
		}
		ok(c, http.StatusCreated, "Appointment booked successfully. Awaiting doctor confirmation.", appointmentViewOf(&booked))
	}
}

// CancelAppointmentHandler lets a patient cancel their own booking
func CancelAppointmentHandler(db *gorm.DB, n notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		ctx := c.Request.Context()

		var appt domain.Appointment
		if err := db.WithContext(ctx).Preload("Doctor.User").Preload("Patient").
			Where("id = ? AND patient_id = ?", c.Param("id"), user.ID).First(&appt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "Appointment not found.")
				return
			}
			_ = c.Error(err)
			return
		}
		if appt.Status == domain.AppointmentCancelled || appt.Status == domain.AppointmentRejected {
			fail(c, http.StatusBadRequest, fmt.Sprintf("Appointment is already %s.", strings.ToLower(string(appt.Status))))
			return
		}

		if !transition(c, db, &appt, domain.HoldingStatuses, domain.AppointmentCancelled) {
			return
		}
		notify.Deliver(ctx, n, notify.AppointmentStatusChanged(appt.Patient, doctorName(appt.Doctor), &appt))
		ok(c, http.StatusOK, "Appointment cancelled.", appointmentViewOf(&appt))
	}
}

// ApproveAppointmentHandler confirms a pending booking of the calling doctor
func ApproveAppointmentHandler(db *gorm.DB, n notify.Notifier) gin.HandlerFunc {
	return decideAppointment(db, n, domain.AppointmentApproved, "approve")
}

// RejectAppointmentHandler declines a pending booking of the calling doctor
func RejectAppointmentHandler(db *gorm.DB, n notify.Notifier) gin.HandlerFunc {
	return decideAppointment(db, n, domain.AppointmentRejected, "reject")
}

func decideAppointment(db *gorm.DB, n notify.Notifier, to domain.AppointmentStatus, verb string) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		ctx := c.Request.Context()

		var appt domain.Appointment
		if err := db.WithContext(ctx).Preload("Doctor.User").Preload("Patient").
			Where("id = ? AND doctor_id = ?", c.Param("id"), profile.ID).First(&appt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "Appointment not found.")
				return
			}
			_ = c.Error(err)
			return
		}
		if appt.Status != domain.AppointmentPending {
			fail(c, http.StatusBadRequest, fmt.Sprintf("Cannot %s an appointment with status: %s.", verb, appt.Status))
			return
		}

		if !transition(c, db, &appt, []domain.AppointmentStatus{domain.AppointmentPending}, to) {
			return
		}
		notify.Deliver(ctx, n, notify.AppointmentStatusChanged(appt.Patient, doctorName(appt.Doctor), &appt))
		ok(c, http.StatusOK, "Appointment "+strings.ToLower(string(to))+".", appointmentViewOf(&appt))
	}
}

// transition moves appt to status "to" only if it is still in one of from.
// It answers the request itself when it returns false.
func transition(c *gin.Context, db *gorm.DB, appt *domain.Appointment, from []domain.AppointmentStatus, to domain.AppointmentStatus) bool {
	res := db.WithContext(c.Request.Context()).Model(&domain.Appointment{}).
		Where("id = ? AND status IN ?", appt.ID, from).
		Update("status", to)
	if res.Error != nil {
		_ = c.Error(res.Error)
		return false
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusConflict, "Appointment was changed by another request. Please reload.")
		return false
	}
	logrus.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"from":           appt.Status,
		"to":             to,
	}).Info("Appointment status changed")
	appt.Status = to
	return true
}

// GetAppointmentHandler returns one appointment visible to the caller
func GetAppointmentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		ctx := c.Request.Context()

		query := db.WithContext(ctx).Preload("Doctor.User").Preload("Patient").Where("id = ?", c.Param("id"))
		switch user.Role {
		case domain.RolePatient:
			query = query.Where("patient_id = ?", user.ID)
		case domain.RoleDoctor:
			// Doctors only see bookings made with their own profile
			sub := db.Session(&gorm.Session{NewDB: true}).Model(&domain.DoctorProfile{}).Select("id").Where("user_id = ?", user.ID)
			query = query.Where("doctor_id IN (?)", sub)
		}

		var appt domain.Appointment
		if err := query.First(&appt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "Appointment not found.")
				return
			}
			_ = c.Error(err)
			return
		}
		ok(c, http.StatusOK, "", appointmentViewOf(&appt))
	}
}
