package api

import (
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"strings"  // Input trimming
	"time"     // Timestamps

	"reservily/internal/config"       // Application configuration
	"reservily/internal/domain"       // Importing domain models
	"reservily/internal/receipt"      // PDF receipts
	"reservily/internal/storage"      // Proof uploads
	"reservily/internal/subscription" // Subscription rules

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

const maxProofBytes = 5 << 20

// PaymentProofRequest records a manual bank transfer
type PaymentProofRequest struct {
	ReferenceNumber string  `json:"referenceNumber" binding:"required,max=100"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Notes           *string `json:"notes" binding:"omitempty,max=500"`
	ProofImageURL   string  `json:"proofImageUrl" binding:"required,uri,max=500"`
}

// SubscriptionInfoHandler shows the caller's subscription and how to pay
func SubscriptionInfoHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		ok(c, http.StatusOK, "", gin.H{
			"subscriptionStatus":    profile.SubscriptionStatus,
			"subscriptionExpiresAt": profile.SubscriptionExpiresAt,
			"isActive":              subscription.IsActive(profile.SubscriptionStatus, profile.SubscriptionExpiresAt, time.Now()),
			"monthlyPrice":          cfg.SubscriptionMonthlyPrice,
			"currency":              cfg.Currency,
			"paymentInstructions":   subscription.Instructions(cfg),
		})
	}
}

// SubmitPaymentProofHandler stores a payment proof and marks the listing pending review
func SubmitPaymentProofHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentProofRequest
		if !bindJSON(c, &req) {
			return
		}
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		ctx := c.Request.Context()
		reference := strings.TrimSpace(req.ReferenceNumber)

		submission := domain.PaymentSubmission{
			DoctorID:        profile.ID,
			Amount:          req.Amount,
			ProofImageURL:   req.ProofImageURL,
			ReferenceNumber: reference,
			Notes:           req.Notes,
		}
		// Submission and profile change are committed together
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&submission).Error; err != nil {
				return err
			}
			updates := map[string]any{
				"payment_proof_url": req.ProofImageURL,
				"payment_reference": reference,
			}
			// A paid-up listing stays visible while a renewal is reviewed
			if !subscription.IsActive(profile.SubscriptionStatus, profile.SubscriptionExpiresAt, time.Now()) {
				updates["subscription_status"] = domain.SubscriptionPending
			}
			return tx.Model(&domain.DoctorProfile{}).Where("id = ?", profile.ID).Updates(updates).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{"doctor_id": profile.ID, "error": err.Error()}).Error("Payment proof submission failed")
			_ = c.Error(err)
			return
		}
		invalidateDoctorSearch(ctx, rdb)

		logrus.WithFields(logrus.Fields{
			"doctor_id":     profile.ID,
			"submission_id": submission.ID,
			"amount":        submission.Amount,
			"reference":     submission.ReferenceNumber,
		}).Info("Payment proof submitted")
		ok(c, http.StatusCreated, "Payment proof submitted. An admin will review and activate your subscription within 24 hours.",
			gin.H{"submissionId": submission.ID})
	}
}

// UploadPaymentProofHandler stores a proof file and returns its URL
func UploadPaymentProofHandler(db *gorm.DB, store storage.Uploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			fail(c, http.StatusServiceUnavailable, "File storage is not configured.")
			return
		}
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		header, err := c.FormFile("proof")
		if err != nil {
			fail(c, http.StatusBadRequest, "proof file is required.")
			return
		}
		contentType, allowed := storage.ProofContentType(header.Filename)
		if !allowed {
			fail(c, http.StatusBadRequest, "proof must be a jpg, jpeg, png or pdf file.")
			return
		}
		if header.Size > maxProofBytes {
			fail(c, http.StatusBadRequest, "proof must be at most 5 MB.")
			return
		}
		file, err := header.Open()
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer file.Close()

		url, err := store.Upload(c.Request.Context(), storage.ProofKey(profile.ID, header.Filename), file, contentType)
		if err != nil {
			logrus.WithFields(logrus.Fields{"doctor_id": profile.ID, "error": err.Error()}).Error("Proof upload failed")
			fail(c, http.StatusBadGateway, "Failed to upload proof.")
			return
		}
		logrus.WithFields(logrus.Fields{"doctor_id": profile.ID, "url": url}).Info("Proof uploaded")
		ok(c, http.StatusCreated, "Proof uploaded.", gin.H{"proofImageUrl": url})
	}
}

// MyPaymentSubmissionsHandler lists the caller's submissions, newest first
func MyPaymentSubmissionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		page, limit, offset := pageParams(c, 20)
		ctx := c.Request.Context()

		var total int64
		if err := db.WithContext(ctx).Model(&domain.PaymentSubmission{}).Where("doctor_id = ?", profile.ID).Count(&total).Error; err != nil {
			_ = c.Error(err)
			return
		}
		var subs []domain.PaymentSubmission
		if err := db.WithContext(ctx).Where("doctor_id = ?", profile.ID).Order("created_at desc").
			Offset(offset).Limit(limit).Find(&subs).Error; err != nil {
			_ = c.Error(err)
			return
		}
		okPage(c, subs, newPagination(total, page, limit))
	}
}

// receiptDetails gathers what the PDF shows about a verified submission
func receiptDetails(sub *domain.PaymentSubmission, profile *domain.DoctorProfile, cfg *config.Config) receipt.Details {
	d := receipt.Details{
		SubmissionID:    sub.ID,
		Specialty:       profile.Specialty,
		ReferenceNumber: sub.ReferenceNumber,
		Amount:          sub.Amount,
		Currency:        cfg.Currency,
		SubmittedAt:     sub.CreatedAt,
		ExpiresAt:       profile.SubscriptionExpiresAt,
	}
	if sub.VerifiedAt != nil {
		d.VerifiedAt = *sub.VerifiedAt
	}
	if profile.User != nil {
		d.DoctorName = profile.User.Name
		d.DoctorEmail = profile.User.Email
	}
	return d
}

// PaymentReceiptHandler returns the PDF receipt of one of the caller's verified payments
func PaymentReceiptHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, found := myProfile(c, db)
		if !found {
			return
		}
		ctx := c.Request.Context()
		var sub domain.PaymentSubmission
		err := db.WithContext(ctx).Where("id = ? AND doctor_id = ?", c.Param("id"), profile.ID).First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "Payment submission not found.")
				return
			}
			_ = c.Error(err)
			return
		}
		if !sub.IsVerified {
			fail(c, http.StatusBadRequest, "Payment has not been verified yet.")
			return
		}

		var owner domain.DoctorProfile
		if err := db.WithContext(ctx).Preload("User").First(&owner, "id = ?", profile.ID).Error; err != nil {
			_ = c.Error(err)
			return
		}
		pdf, err := receipt.Render(receiptDetails(&sub, &owner, cfg))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="reservily-receipt-`+sub.ID+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}
