package api

import (
	"math"     // Page count
	"net/http" // HTTP status codes
	"strconv"  // Query parsing
	"strings"  // Status filters

	"reservily/internal/domain" // Domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// Pagination metadata for list responses
type Pagination struct {
	Total int64 `json:"total"` // Total matching rows
	Page  int   `json:"page"`  // Current page
	Limit int   `json:"limit"` // Page size
	Pages int   `json:"pages"` // Total pages
}

const maxLimit = 100

// pageParams reads page and limit, falling back to defaults on bad input
func pageParams(c *gin.Context, defaultLimit int) (page, limit, offset int) {
	page, limit = 1, defaultLimit
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}
	return page, limit, (page - 1) * limit
}

func newPagination(total int64, page, limit int) Pagination {
	return Pagination{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// ok writes a success envelope; empty message and nil data are omitted
func ok(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func okPage(c *gin.Context, data any, p Pagination) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "pagination": p})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// statusFilter parses ?status=, reporting false after answering 400
func statusFilter(c *gin.Context) (domain.AppointmentStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return "", true
	}
	st, valid := domain.ParseAppointmentStatus(strings.ToUpper(raw))
	if !valid {
		fail(c, http.StatusBadRequest, "Invalid status filter.")
		return "", false
	}
	return st, true
}

// userBrief is the public part of an account
type userBrief struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func briefOf(u *domain.User) *userBrief {
	if u == nil {
		return nil
	}
	return &userBrief{ID: u.ID, Name: u.Name, Email: u.Email}
}

// doctorView is a doctor profile with its owner's public fields
type doctorView struct {
	domain.DoctorProfile
	User *userBrief `json:"user,omitempty"`
}

func doctorViewOf(p *domain.DoctorProfile) *doctorView {
	if p == nil {
		return nil
	}
	return &doctorView{DoctorProfile: *p, User: briefOf(p.User)}
}

func doctorViews(profiles []domain.DoctorProfile) []doctorView {
	out := make([]doctorView, len(profiles))
	for i := range profiles {
		out[i] = *doctorViewOf(&profiles[i])
	}
	return out
}

// appointmentView is an appointment with whichever relations were loaded
type appointmentView struct {
	domain.Appointment
	Doctor  *doctorView `json:"doctor,omitempty"`
	Patient *userBrief  `json:"patient,omitempty"`
}

func appointmentViewOf(a *domain.Appointment) appointmentView {
	return appointmentView{Appointment: *a, Doctor: doctorViewOf(a.Doctor), Patient: briefOf(a.Patient)}
}

func appointmentViews(appts []domain.Appointment) []appointmentView {
	out := make([]appointmentView, len(appts))
	for i := range appts {
		out[i] = appointmentViewOf(&appts[i])
	}
	return out
}

// doctorName is the display name of a profile's owner, if loaded
func doctorName(p *domain.DoctorProfile) string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.Name
}
