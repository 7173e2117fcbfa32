package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"reservily/internal/config"
	"reservily/internal/db"
	"reservily/internal/domain"
	"reservily/internal/notify"
	"reservily/internal/schedule"
	"reservily/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testSecret   = "test-secret"
	testPassword = "password123"
)

func init() {
	gin.SetMode(gin.TestMode)
	logrus.SetLevel(logrus.ErrorLevel)
	passwordCost = bcrypt.MinCost
}

// outbox records every notification the handlers send
type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) kinds() []notify.Kind {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]notify.Kind, len(o.msgs))
	for i, m := range o.msgs {
		out[i] = m.Kind
	}
	return out
}

func (o *outbox) last() notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.msgs[len(o.msgs)-1]
}

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, body)
	f.keys = append(f.keys, key)
	return "https://files.example.com/" + key, nil
}

type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	cfg      *config.Config
	sent     *outbox
	uploader *fakeUploader
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.OpenWith(sqlite.Open("file::memory:"), false)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:                testSecret,
		JWTExpiresIn:             time.Hour,
		ClientURL:                "*",
		AuthRateLimit:            1000,
		AuthRateWindow:           time.Minute,
		BankName:                 "National Bank",
		BankAccountNumber:        "0000000000",
		BankAccountHolder:        "Reservily Platform",
		BankRoutingNumber:        "000000000",
		SubscriptionMonthlyPrice: 29.99,
		Currency:                 "USD",
		SlotMinutes:              30,
	}
	env := &testEnv{db: gdb, mr: mr, cfg: cfg, sent: &outbox{}, uploader: &fakeUploader{}}
	env.router = NewRouter(Deps{
		DB:       gdb,
		Redis:    rdb,
		Config:   cfg,
		Notifier: env.sent,
		Uploader: env.uploader,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (e *testEnv) user(t *testing.T, name, email string, role domain.Role) (*domain.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{Name: name, Email: email, Password: string(hash), Role: role, IsActive: true}
	require.NoError(t, e.db.Create(u).Error)
	token, err := utils.GenerateJWT(u.ID, string(role), testSecret, time.Hour)
	require.NoError(t, err)
	return u, token
}

// doctor seeds a doctor account; ACTIVE listings get a month of subscription
func (e *testEnv) doctor(t *testing.T, name, email string, status domain.SubscriptionStatus) (*domain.User, *domain.DoctorProfile, string) {
	t.Helper()
	u, token := e.user(t, name, email, domain.RoleDoctor)
	profile := &domain.DoctorProfile{
		UserID:             u.ID,
		Specialty:          "Cardiology",
		City:               "Boston",
		ClinicAddress:      "1 Main St",
		Price:              120,
		Experience:         10,
		SubscriptionStatus: status,
	}
	if status == domain.SubscriptionActive {
		expires := time.Now().UTC().AddDate(0, 1, 0)
		profile.SubscriptionExpiresAt = &expires
	}
	require.NoError(t, e.db.Create(profile).Error)
	return u, profile, token
}

func (e *testEnv) window(t *testing.T, profileID string, day domain.Weekday, start, end string) {
	t.Helper()
	require.NoError(t, e.db.Create(&domain.Availability{DoctorID: profileID, DayOfWeek: day, StartTime: start, EndTime: end}).Error)
}

func (e *testEnv) profile(t *testing.T, id string) domain.DoctorProfile {
	t.Helper()
	var p domain.DoctorProfile
	require.NoError(t, e.db.First(&p, "id = ?", id).Error)
	return p
}

// inDays is the UTC calendar day n days from today
func inDays(n int) time.Time {
	return schedule.Day(time.Now().UTC()).AddDate(0, 0, n)
}

func dataOf(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func listOf(body map[string]any) []any {
	l, _ := body["data"].([]any)
	return l
}
