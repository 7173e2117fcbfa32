package subscription

import (
	"context"
	"testing"
	"time"

	"reservily/internal/config"
	"reservily/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(domain.Models()...))
	return gdb
}

func seedDoctor(t *testing.T, gdb *gorm.DB, email string, status domain.SubscriptionStatus, expires *time.Time) domain.DoctorProfile {
	t.Helper()
	user := domain.User{Name: "Dr " + email, Email: email, Password: "x", Role: domain.RoleDoctor}
	require.NoError(t, gdb.Create(&user).Error)
	profile := domain.DoctorProfile{
		UserID: user.ID, Specialty: "Cardiology", City: "Lyon", ClinicAddress: "1 Rue",
		Price: 50, SubscriptionStatus: status, SubscriptionExpiresAt: expires,
	}
	require.NoError(t, gdb.Create(&profile).Error)
	return profile
}

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, IsActive(domain.SubscriptionActive, &future, now))
	assert.False(t, IsActive(domain.SubscriptionActive, &past, now))
	assert.False(t, IsActive(domain.SubscriptionActive, nil, now))
	assert.False(t, IsActive(domain.SubscriptionPending, &future, now))
}

func TestExpiryDateAddsCalendarMonths(t *testing.T) {
	from := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC), ExpiryDate(from, 1))
	assert.Equal(t, time.Date(2027, 1, 15, 9, 0, 0, 0, time.UTC), ExpiryDate(from, 12))
}

func TestBankDefaults(t *testing.T) {
	cfg := &config.Config{BankName: "National Bank", BankAccountNumber: "0000000000", SubscriptionMonthlyPrice: 29.99, Currency: "USD"}
	info := Bank(cfg)
	assert.Equal(t, "National Bank", info.BankName)
	assert.Equal(t, 29.99, info.Amount)
	assert.Contains(t, info.Instructions, "/api/doctors/payment-proof")
	assert.Len(t, Instructions(cfg).Steps, 4)
}

func TestExpireOverdue(t *testing.T) {
	gdb := openDB(t)
	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	overdue := seedDoctor(t, gdb, "old@example.com", domain.SubscriptionActive, &past)
	current := seedDoctor(t, gdb, "new@example.com", domain.SubscriptionActive, &future)
	pending := seedDoctor(t, gdb, "pending@example.com", domain.SubscriptionPending, &past)

	n, err := ExpireOverdue(context.Background(), gdb, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	statusOf := func(id string) domain.SubscriptionStatus {
		var got domain.DoctorProfile
		require.NoError(t, gdb.First(&got, "id = ?", id).Error)
		return got.SubscriptionStatus
	}
	assert.Equal(t, domain.SubscriptionInactive, statusOf(overdue.ID))
	assert.Equal(t, domain.SubscriptionActive, statusOf(current.ID))
	assert.Equal(t, domain.SubscriptionPending, statusOf(pending.ID))
}

func TestSweeperStopsOnCancel(t *testing.T) {
	gdb := openDB(t)
	past := time.Now().UTC().Add(-time.Hour)
	profile := seedDoctor(t, gdb, "sweep@example.com", domain.SubscriptionActive, &past)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(gdb, time.Hour).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		var got domain.DoctorProfile
		return gdb.First(&got, "id = ?", profile.ID).Error == nil && got.SubscriptionStatus == domain.SubscriptionInactive
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
