package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"reservily/internal/domain"
	"reservily/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDoctorsShowsOnlyBookableListings(t *testing.T) {
	env := newTestEnv(t)
	_, active, _ := env.doctor(t, "Sara Lee", "sara@example.com", domain.SubscriptionActive)
	env.doctor(t, "Omar Ray", "omar@example.com", domain.SubscriptionInactive)
	env.doctor(t, "Kim Park", "kim@example.com", domain.SubscriptionPending)
	suspended, _, _ := env.doctor(t, "Ian Cole", "ian@example.com", domain.SubscriptionActive)
	require.NoError(t, env.db.Model(&domain.User{}).Where("id = ?", suspended.ID).Update("is_active", false).Error)

	w, body := env.do(t, http.MethodGet, "/api/doctors", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := listOf(body)
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, active.ID, first["id"])
	assert.Equal(t, "Sara Lee", first["user"].(map[string]any)["name"])
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["total"])
	assert.EqualValues(t, 10, pagination["limit"])

	w, body = env.do(t, http.MethodGet, "/api/doctors?specialty=CARDIO&city=bos", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listOf(body), 1)

	w, body = env.do(t, http.MethodGet, "/api/doctors?city=austin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, listOf(body))
}

func TestDoctorSearchCacheIsInvalidatedOnProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	_, _, token := env.doctor(t, "Sara Lee", "sara@example.com", domain.SubscriptionActive)

	w, body := env.do(t, http.MethodGet, "/api/doctors?city=austin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, listOf(body))

	cached := 0
	for _, k := range env.mr.Keys() {
		if strings.HasPrefix(k, utils.DoctorSearchPrefix) {
			cached++
		}
	}
	assert.Equal(t, 1, cached)

	w, body = env.do(t, http.MethodPut, "/api/doctors/profile", token, gin.H{"city": "Austin", "price": 150})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Austin", dataOf(body)["city"])

	w, body = env.do(t, http.MethodGet, "/api/doctors?city=austin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listOf(body), 1)
}

func TestGetDoctor(t *testing.T) {
	env := newTestEnv(t)
	_, active, _ := env.doctor(t, "Sara Lee", "sara@example.com", domain.SubscriptionActive)
	_, inactive, _ := env.doctor(t, "Omar Ray", "omar@example.com", domain.SubscriptionInactive)
	env.window(t, active.ID, domain.Wednesday, "09:00", "12:00")

	w, body := env.do(t, http.MethodGet, "/api/doctors/"+active.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(body)
	assert.Equal(t, "Cardiology", data["specialty"])
	assert.Len(t, data["availability"], 1)

	w, body = env.do(t, http.MethodGet, "/api/doctors/"+inactive.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Doctor not found.", body["message"])
}

func TestDoctorSlots(t *testing.T) {
	env := newTestEnv(t)
	patient, _ := env.user(t, "Pat Doe", "pat@example.com", domain.RolePatient)
	_, profile, _ := env.doctor(t, "Sara Lee", "sara@example.com", domain.SubscriptionActive)
	day := inDays(7)
	env.window(t, profile.ID, domain.WeekdayOf(day), "09:00", "11:00")
	require.NoError(t, env.db.Create(&domain.Appointment{
		DoctorID: profile.ID, PatientID: patient.ID, Date: day, Time: "09:30", Status: domain.AppointmentPending,
	}).Error)
	require.NoError(t, env.db.Create(&domain.Appointment{
		DoctorID: profile.ID, PatientID: patient.ID, Date: day, Time: "10:00", Status: domain.AppointmentCancelled,
	}).Error)

	path := "/api/doctors/" + profile.ID + "/slots?date=" + day.Format(time.DateOnly)
	w, body := env.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(body)
	assert.Equal(t, []any{"09:00", "10:00", "10:30"}, data["slots"])
	assert.Equal(t, string(domain.WeekdayOf(day)), data["dayOfWeek"])

	// The day after has no window
	next := day.AddDate(0, 0, 1)
	w, body = env.do(t, http.MethodGet, "/api/doctors/"+profile.ID+"/slots?date="+next.Format(time.DateOnly), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dataOf(body)["slots"])

	w, _ = env.do(t, http.MethodGet, "/api/doctors/"+profile.ID+"/slots?date="+inDays(-1).Format(time.DateOnly), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/doctors/"+profile.ID+"/slots?date=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, profile, token := env.doctor(t, "Sara Lee", "sara@example.com", domain.SubscriptionActive)

	w, body := env.do(t, http.MethodPost, "/api/doctors/availability", token, gin.H{"dayOfWeek": "MONDAY", "startTime": "09:00", "endTime": "17:00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Availability updated.", body["message"])

	w, body = env.do(t, http.MethodPost, "/api/doctors/availability", token, gin.H{"dayOfWeek": "MONDAY", "startTime": "10:00", "endTime": "12:00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "10:00", dataOf(body)["startTime"])

	var windows []domain.Availability
	require.NoError(t, env.db.Where("doctor_id = ?", profile.ID).Find(&windows).Error)
	require.Len(t, windows, 1)
	assert.Equal(t, "12:00", windows[0].EndTime)

	w, body = env.do(t, http.MethodPost, "/api/doctors/availability", token, gin.H{"dayOfWeek": "TUESDAY", "startTime": "12:00", "endTime": "12:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "startTime must be before endTime.", body["message"])

	w, body = env.do(t, http.MethodPost, "/api/doctors/availability", token, gin.H{"dayOfWeek": "FUNDAY", "startTime": "9:00", "endTime": "12:00"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Len(t, body["errors"], 2)

	w, body = env.do(t, http.MethodGet, "/api/doctors/me/availability", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listOf(body), 1)

	w, _ = env.do(t, http.MethodDelete, "/api/doctors/availability/monday", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count int64
	env.db.Model(&domain.Availability{}).Where("doctor_id = ?", profile.ID).Count(&count)
	assert.Zero(t, count)

	w, _ = env.do(t, http.MethodDelete, "/api/doctors/availability/funday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionGate(t *testing.T) {
	env := newTestEnv(t)
	_, _, inactiveToken := env.doctor(t, "Omar Ray", "omar@example.com", domain.SubscriptionInactive)
	_, expired, expiredToken := env.doctor(t, "Kim Park", "kim@example.com", domain.SubscriptionActive)
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.db.Model(&domain.DoctorProfile{}).Where("id = ?", expired.ID).Update("subscription_expires_at", past).Error)
	_, patientToken := env.user(t, "Pat Doe", "pat@example.com", domain.RolePatient)

	w, body := env.do(t, http.MethodGet, "/api/doctors/me/availability", inactiveToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Your subscription is not active. Please complete payment to activate your account.", body["message"])

	w, body = env.do(t, http.MethodGet, "/api/doctors/me/appointments", expiredToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Your subscription has expired. Please renew to continue.", body["message"])
	assert.Equal(t, domain.SubscriptionInactive, env.profile(t, expired.ID).SubscriptionStatus)

	w, body = env.do(t, http.MethodGet, "/api/doctors/me/availability", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied. Required role: DOCTOR.", body["message"])

	// Payment routes stay open to unpaid doctors
	w, body = env.do(t, http.MethodGet, "/api/doctors/me/subscription", inactiveToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(body)
	assert.Equal(t, false, data["isActive"])
	assert.Equal(t, "INACTIVE", data["subscriptionStatus"])
	assert.Len(t, data["paymentInstructions"].(map[string]any)["steps"], 4)
}
