package api

import (
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"reservily/internal/config"       // Application configuration
	"reservily/internal/domain"       // Importing domain models
	"reservily/internal/middleware"   // Current user lookup
	"reservily/internal/subscription" // Bank transfer info
	"reservily/internal/utils"        // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// passwordCost is the bcrypt work factor for new hashes
var passwordCost = 12

// RegisterRequest is the sign-up body; the doctor fields are only allowed for DOCTOR
type RegisterRequest struct {
	Name          string      `json:"name" binding:"required,min=2,max=100"`
	Email         string      `json:"email" binding:"required,email"`
	Password      string      `json:"password" binding:"required,min=8,max=100"`
	Role          domain.Role `json:"role" binding:"required,oneof=DOCTOR PATIENT"`
	Specialty     *string     `json:"specialty" binding:"omitempty,max=100"`
	City          *string     `json:"city" binding:"omitempty,max=100"`
	ClinicAddress *string     `json:"clinicAddress" binding:"omitempty,max=255"`
	Price         *float64    `json:"price" binding:"omitempty,gt=0"`
	Experience    *int        `json:"experience" binding:"omitempty,gte=0"`
	Bio           *string     `json:"bio" binding:"omitempty,max=1000"`
}

// doctorFieldErrors checks the fields that depend on the chosen role
func (r *RegisterRequest) doctorFieldErrors() []string {
	present := map[string]bool{
		"specialty":     r.Specialty != nil && strings.TrimSpace(*r.Specialty) != "",
		"city":          r.City != nil && strings.TrimSpace(*r.City) != "",
		"clinicAddress": r.ClinicAddress != nil && strings.TrimSpace(*r.ClinicAddress) != "",
		"price":         r.Price != nil,
		"experience":    r.Experience != nil,
	}
	order := []string{"specialty", "city", "clinicAddress", "price", "experience"}

	var errs []string
	if r.Role == domain.RoleDoctor {
		for _, f := range order {
			if !present[f] {
				errs = append(errs, f+" is required")
			}
		}
		return errs
	}
	for _, f := range order {
		if present[f] {
			errs = append(errs, f+" is not allowed")
		}
	}
	if r.Bio != nil {
		errs = append(errs, "bio is not allowed")
	}
	return errs
}

// LoginRequest is the login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest is the password change body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=100"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *RegisterRequest) normalize() { r.Email = normalizeEmail(r.Email) }

func (r *LoginRequest) normalize() { r.Email = normalizeEmail(r.Email) }

// RegisterHandler creates a patient or doctor account and returns a token
func RegisterHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if !bindJSON(c, &req) {
			return
		}
		if errs := req.doctorFieldErrors(); len(errs) > 0 {
			validationFailed(c, errs)
			return
		}
		email := req.Email
		ctx := c.Request.Context()

		// Check for an existing account first for a clean 409
		var count int64
		if err := db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			_ = c.Error(err)
			return
		}
		if count > 0 {
			fail(c, http.StatusConflict, "An account with this email already exists.")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordCost)
		if err != nil {
			_ = c.Error(err)
			return
		}

		user := domain.User{Name: strings.TrimSpace(req.Name), Email: email, Password: string(hash), Role: req.Role, IsActive: true}
		// User and doctor profile are created together or not at all
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			if req.Role != domain.RoleDoctor {
				return nil
			}
			profile := domain.DoctorProfile{
				UserID:             user.ID,
				Specialty:          strings.TrimSpace(*req.Specialty),
				City:               strings.TrimSpace(*req.City),
				ClinicAddress:      strings.TrimSpace(*req.ClinicAddress),
				Price:              *req.Price,
				Experience:         *req.Experience,
				Bio:                req.Bio,
				SubscriptionStatus: domain.SubscriptionInactive,
			}
			return tx.Create(&profile).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				fail(c, http.StatusConflict, "An account with this email already exists.")
				return
			}
			_ = c.Error(err)
			return
		}

		token, err := utils.GenerateJWT(user.ID, string(user.Role), cfg.JWTSecret, cfg.JWTExpiresIn)
		if err != nil {
			_ = c.Error(err)
			return
		}

		logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")

		data := gin.H{
			"token": token,
			"user":  gin.H{"id": user.ID, "name": user.Name, "email": user.Email, "role": user.Role},
		}
		message := "Patient account created successfully."
		if user.Role == domain.RoleDoctor {
			data["bankInfo"] = subscription.Bank(cfg)
			message = "Doctor account created. Please complete payment to activate your subscription."
		}
		ok(c, http.StatusCreated, message, data)
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}

		var user domain.User
		err := db.WithContext(c.Request.Context()).Preload("DoctorProfile").
			Where("email = ?", req.Email).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusUnauthorized, "Invalid email or password.")
				return
			}
			_ = c.Error(err)
			return
		}
		if !user.IsActive {
			fail(c, http.StatusForbidden, "Your account has been suspended. Contact support.")
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": user.ID}).Warn("Failed login")
			fail(c, http.StatusUnauthorized, "Invalid email or password.")
			return
		}

		token, err := utils.GenerateJWT(user.ID, string(user.Role), cfg.JWTSecret, cfg.JWTExpiresIn)
		if err != nil {
			_ = c.Error(err)
			return
		}

		out := gin.H{"id": user.ID, "name": user.Name, "email": user.Email, "role": user.Role}
		if p := user.DoctorProfile; p != nil {
			out["subscriptionStatus"] = p.SubscriptionStatus
			out["subscriptionExpiresAt"] = p.SubscriptionExpiresAt
		}
		ok(c, http.StatusOK, "Login successful.", gin.H{"token": token, "user": out})
	}
}

// MeHandler returns the caller with doctor profile and availability
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := middleware.CurrentUser(c)
		var user domain.User
		err := db.WithContext(c.Request.Context()).
			Preload("DoctorProfile.Availability").
			First(&user, "id = ?", current.ID).Error
		if err != nil {
			_ = c.Error(err)
			return
		}
		if user.DoctorProfile != nil {
			sortByWeekday(user.DoctorProfile.Availability)
		}
		ok(c, http.StatusOK, "", user)
	}
}

// ChangePasswordHandler replaces the caller's password after checking the current one
func ChangePasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		user := middleware.CurrentUser(c)
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
			fail(c, http.StatusUnauthorized, "Current password is incorrect.")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), passwordCost)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if err := db.WithContext(c.Request.Context()).Model(&domain.User{}).
			Where("id = ?", user.ID).Update("password", string(hash)).Error; err != nil {
			_ = c.Error(err)
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("Password changed")
		ok(c, http.StatusOK, "Password updated successfully.", nil)
	}
}
