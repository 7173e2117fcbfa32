// Package subscription holds the rules of a doctor's paid listing: when it
// counts as active, how long a verified payment extends it, and where the
// manual bank transfer should go.
package subscription

import (
	"context" // Cancellation for database work
	"time"    // Expiry arithmetic

	"reservily/internal/config" // Bank transfer settings
	"reservily/internal/domain" // Doctor profile model

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// IsActive reports whether a listing is paid up at now
func IsActive(status domain.SubscriptionStatus, expiresAt *time.Time, now time.Time) bool {
	return status == domain.SubscriptionActive && expiresAt != nil && expiresAt.After(now)
}

// ExpiryDate adds whole calendar months to from
func ExpiryDate(from time.Time, months int) time.Time {
	return from.AddDate(0, months, 0)
}

// BankInfo is returned to doctors right after registration
type BankInfo struct {
	BankName      string  `json:"bankName"`
	AccountNumber string  `json:"accountNumber"`
	AccountHolder string  `json:"accountHolder"`
	RoutingNumber string  `json:"routingNumber"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Instructions  string  `json:"instructions"`
}

// PaymentInstructions is the bank account plus the steps to follow
type PaymentInstructions struct {
	BankName      string   `json:"bankName"`
	AccountNumber string   `json:"accountNumber"`
	AccountHolder string   `json:"accountHolder"`
	RoutingNumber string   `json:"routingNumber"`
	Steps         []string `json:"steps"`
}

// Bank builds the transfer details from configuration
func Bank(cfg *config.Config) BankInfo {
	return BankInfo{
		BankName:      cfg.BankName,
		AccountNumber: cfg.BankAccountNumber,
		AccountHolder: cfg.BankAccountHolder,
		RoutingNumber: cfg.BankRoutingNumber,
		Amount:        cfg.SubscriptionMonthlyPrice,
		Currency:      cfg.Currency,
		Instructions:  "Please transfer the subscription fee and submit your payment proof via POST /api/doctors/payment-proof",
	}
}

// Instructions lists the payment steps shown on the subscription page
func Instructions(cfg *config.Config) PaymentInstructions {
	return PaymentInstructions{
		BankName:      cfg.BankName,
		AccountNumber: cfg.BankAccountNumber,
		AccountHolder: cfg.BankAccountHolder,
		RoutingNumber: cfg.BankRoutingNumber,
		Steps: []string{
			"1. Transfer the monthly subscription fee to the bank account above",
			"2. Include your registered email as the transfer reference",
			"3. Submit your payment proof via POST /api/doctors/payment-proof",
			"4. An admin will verify and activate your account within 24 hours",
		},
	}
}

// Expire marks a single profile INACTIVE
func Expire(ctx context.Context, db *gorm.DB, profileID string) error {
	return db.WithContext(ctx).Model(&domain.DoctorProfile{}).
		Where("id = ?", profileID).
		Update("subscription_status", domain.SubscriptionInactive).Error
}

// ExpireOverdue flips every ACTIVE profile whose period ended before now
func ExpireOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.DoctorProfile{}).
		Where("subscription_status = ? AND subscription_expires_at < ?", domain.SubscriptionActive, now).
		Update("subscription_status", domain.SubscriptionInactive)
	return res.RowsAffected, res.Error
}

// Sweeper runs ExpireOverdue on a fixed interval
type Sweeper struct {
	db       *gorm.DB
	interval time.Duration
	now      func() time.Time
}

// NewSweeper returns a sweeper; a non-positive interval defaults to one hour
func NewSweeper(db *gorm.DB, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{db: db, interval: interval, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			logrus.Info("subscription sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := ExpireOverdue(ctx, s.db, s.now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Error("failed to expire subscriptions")
		}
		return
	}
	if n > 0 {
		logrus.WithFields(logrus.Fields{"expired": n}).Info("subscriptions expired")
	}
}
