package db

import (
	"errors"  // Error classification
	"strings" // Email normalization

	"reservily/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// SeedAdmin creates the admin account unless the email is already taken.
// It reports whether a row was inserted.
func SeedAdmin(gdb *gorm.DB, name, email, password string, cost int) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, errors.New("admin email and password are required")
	}

	var existing domain.User
	err := gdb.Where("email = ?", email).First(&existing).Error
	if err == nil {
		logrus.WithField("email", email).Info("Admin already exists, skipping seed")
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return false, err
	}
	admin := domain.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     domain.RoleAdmin,
		IsActive: true,
	}
	if err := gdb.Create(&admin).Error; err != nil {
		return false, err
	}
	logrus.WithFields(logrus.Fields{"user_id": admin.ID, "email": email}).Info("Admin account created")
	return true, nil
}
