package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"reservily/internal/domain"
	"reservily/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookingFixture is an ACTIVE doctor open 09:00-12:00 a week from now, plus a patient
type bookingFixture struct {
	env          *testEnv
	profile      *domain.DoctorProfile
	doctorToken  string
	patient      *domain.User
	patientToken string
	day          time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	env := newTestEnv(t)
	_, profile, doctorToken := env.doctor(t, "Sara Lee", "sara@example.com", domain.SubscriptionActive)
	patient, patientToken := env.user(t, "Pat Doe", "pat@example.com", domain.RolePatient)
	day := inDays(7)
	env.window(t, profile.ID, domain.WeekdayOf(day), "09:00", "12:00")
	return &bookingFixture{env: env, profile: profile, doctorToken: doctorToken, patient: patient, patientToken: patientToken, day: day}
}

func (f *bookingFixture) book(t *testing.T, token, clock string) (int, map[string]any) {
	w, body := f.env.do(t, http.MethodPost, "/api/appointments", token, gin.H{
		"doctorId": f.profile.ID,
		"date":     f.day.Format(time.DateOnly),
		"time":     clock,
		"notes":    "Chest pain",
	})
	return w.Code, body
}

func TestBookAppointment(t *testing.T) {
	f := newBookingFixture(t)

	code, body := f.book(t, f.patientToken, "10:00")
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Appointment booked successfully. Awaiting doctor confirmation.", body["message"])
	data := dataOf(body)
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, "10:00", data["time"])
	assert.Equal(t, "Sara Lee", data["doctor"].(map[string]any)["user"].(map[string]any)["name"])
	assert.Equal(t, "Pat Doe", data["patient"].(map[string]any)["name"])
	assert.Equal(t, []notify.Kind{notify.KindAppointmentBooked, notify.KindAppointmentRequested}, f.env.sent.kinds())
	assert.Equal(t, "sara@example.com", f.env.sent.last().To)

	other, otherToken := f.env.user(t, "Ann Other", "ann@example.com", domain.RolePatient)
	code, body = f.book(t, otherToken, "10:00")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "This time slot is already booked.", body["message"])

	var count int64
	f.env.db.Model(&domain.Appointment{}).Where("patient_id = ?", other.ID).Count(&count)
	assert.Zero(t, count)
}

func TestBookAppointmentRejections(t *testing.T) {
	f := newBookingFixture(t)
	weekday := domain.WeekdayOf(f.day)

	code, body := f.book(t, f.patientToken, "12:00")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, fmt.Sprintf("Doctor is available from 09:00 to 12:00 on %s.", weekday), body["message"])

	code, body = f.book(t, f.patientToken, "08:59")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.book(t, f.patientToken, "09:15")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Appointments start every 30 minutes from 09:00.", body["message"])

	code, _ = f.book(t, f.patientToken, "11:45")
	assert.Equal(t, http.StatusBadRequest, code)

	next := f.day.AddDate(0, 0, 1)
	w, body := f.env.do(t, http.MethodPost, "/api/appointments", f.patientToken, gin.H{
		"doctorId": f.profile.ID, "date": next.Format(time.DateOnly), "time": "10:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, fmt.Sprintf("Doctor is not available on %s.", domain.WeekdayOf(next)), body["message"])

	w, body = f.env.do(t, http.MethodPost, "/api/appointments", f.patientToken, gin.H{
		"doctorId": f.profile.ID, "date": inDays(-1).Format(time.DateOnly), "time": "10:00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, body["errors"], "date must not be in the past")

	w, body = f.env.do(t, http.MethodPost, "/api/appointments", f.patientToken, gin.H{
		"doctorId": "not-a-uuid", "date": "someday", "time": "25:00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Len(t, body["errors"], 2)

	_, inactive, _ := f.env.doctor(t, "Omar Ray", "omar@example.com", domain.SubscriptionInactive)
	f.env.window(t, inactive.ID, domain.WeekdayOf(f.day), "09:00", "12:00")
	w, body = f.env.do(t, http.MethodPost, "/api/appointments", f.patientToken, gin.H{
		"doctorId": inactive.ID, "date": f.day.Format(time.DateOnly), "time": "10:00",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Doctor not found or not available for booking.", body["message"])

	// Doctors cannot book
	code, _ = f.book(t, f.doctorToken, "10:00")
	assert.Equal(t, http.StatusForbidden, code)

	assert.Empty(t, f.env.sent.kinds())
}

func TestCancelFreesTheSlot(t *testing.T) {
	f := newBookingFixture(t)
	code, body := f.book(t, f.patientToken, "10:00")
	require.Equal(t, http.StatusCreated, code)
	id := dataOf(body)["id"].(string)

	_, strangerToken := f.env.user(t, "Ann Other", "ann@example.com", domain.RolePatient)
	w, _ := f.env.do(t, http.MethodPatch, "/api/appointments/"+id+"/cancel", strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = f.env.do(t, http.MethodPatch, "/api/appointments/"+id+"/cancel", f.patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Appointment cancelled.", body["message"])
	assert.Equal(t, "CANCELLED", dataOf(body)["status"])
	assert.Equal(t, notify.KindAppointmentStatus, f.env.sent.last().Kind)

	w, body = f.env.do(t, http.MethodPatch, "/api/appointments/"+id+"/cancel", f.patientToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Appointment is already cancelled.", body["message"])

	code, _ = f.book(t, strangerToken, "10:00")
	assert.Equal(t, http.StatusCreated, code)
}

func TestApproveAndRejectAppointments(t *testing.T) {
	f := newBookingFixture(t)
	_, first := f.book(t, f.patientToken, "09:00")
	_, second := f.book(t, f.patientToken, "09:30")
	firstID := dataOf(first)["id"].(string)
	secondID := dataOf(second)["id"].(string)

	w, body := f.env.do(t, http.MethodPatch, "/api/appointments/"+firstID+"/approve", f.doctorToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Appointment approved.", body["message"])
	assert.Equal(t, "APPROVED", dataOf(body)["status"])
	last := f.env.sent.last()
	assert.Equal(t, "pat@example.com", last.To)
	assert.Equal(t, "Appointment approved", last.Subject)

	w, body = f.env.do(t, http.MethodPatch, "/api/appointments/"+firstID+"/reject", f.doctorToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot reject an appointment with status: APPROVED.", body["message"])

	w, body = f.env.do(t, http.MethodPatch, "/api/appointments/"+secondID+"/reject", f.doctorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Appointment rejected.", body["message"])

	// A rejected booking releases its slot
	code, _ := f.book(t, f.patientToken, "09:30")
	assert.Equal(t, http.StatusCreated, code)

	// Another doctor cannot touch these bookings
	_, _, otherToken := f.env.doctor(t, "Omar Ray", "omar@example.com", domain.SubscriptionActive)
	w, _ = f.env.do(t, http.MethodPatch, "/api/appointments/"+firstID+"/approve", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.env.do(t, http.MethodPatch, "/api/appointments/"+firstID+"/approve", f.patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAppointmentListsAndVisibility(t *testing.T) {
	f := newBookingFixture(t)
	_, later := f.book(t, f.patientToken, "11:00")
	_, earlier := f.book(t, f.patientToken, "09:00")
	laterID := dataOf(later)["id"].(string)
	earlierID := dataOf(earlier)["id"].(string)
	w, _ := f.env.do(t, http.MethodPatch, "/api/appointments/"+laterID+"/approve", f.doctorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := f.env.do(t, http.MethodGet, "/api/patients/appointments", f.patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := listOf(body)
	require.Len(t, list, 2)
	assert.Equal(t, earlierID, list[0].(map[string]any)["id"])

	w, body = f.env.do(t, http.MethodGet, "/api/patients/appointments?status=approved", f.patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listOf(body), 1)

	w, body = f.env.do(t, http.MethodGet, "/api/patients/appointments?status=DONE", f.patientToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid status filter.", body["message"])

	w, body = f.env.do(t, http.MethodGet, "/api/doctors/me/appointments?status=PENDING", f.doctorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = listOf(body)
	require.Len(t, list, 1)
	assert.Equal(t, "Pat Doe", list[0].(map[string]any)["patient"].(map[string]any)["name"])

	w, _ = f.env.do(t, http.MethodGet, "/api/appointments/"+earlierID, f.patientToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = f.env.do(t, http.MethodGet, "/api/appointments/"+earlierID, f.doctorToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, strangerToken := f.env.user(t, "Ann Other", "ann@example.com", domain.RolePatient)
	w, _ = f.env.do(t, http.MethodGet, "/api/appointments/"+earlierID, strangerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, _, otherDoctorToken := f.env.doctor(t, "Omar Ray", "omar@example.com", domain.SubscriptionActive)
	w, _ = f.env.do(t, http.MethodGet, "/api/appointments/"+earlierID, otherDoctorToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, adminToken := f.env.user(t, "Admin", "admin@example.com", domain.RoleAdmin)
	w, _ = f.env.do(t, http.MethodGet, "/api/appointments/"+earlierID, adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPatientProfile(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "Pat Doe", "pat@example.com", domain.RolePatient)

	w, body := env.do(t, http.MethodGet, "/api/patients/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pat@example.com", dataOf(body)["email"])

	w, body = env.do(t, http.MethodPut, "/api/patients/profile", token, gin.H{"name": "Patricia Doe"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Profile updated.", body["message"])
	assert.Equal(t, "Patricia Doe", dataOf(body)["name"])

	w, _ = env.do(t, http.MethodPut, "/api/patients/profile", token, gin.H{"name": "P"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
