package main

import (
	"reservily/internal/config"  // Configuration
	"reservily/internal/db"      // Database connection and seeding
	"reservily/internal/logging" // Logger setup

	"github.com/sirupsen/logrus" // Structured logging
)

const adminPasswordCost = 12

// Creates the admin account from ADMIN_NAME, ADMIN_EMAIL and ADMIN_PASSWORD
func main() {
	cfg := config.LoadConfig()
	logging.Setup(cfg.IsProd, cfg.LogLevel)

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate: %v", err)
	}
	if _, err := db.SeedAdmin(gdb, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, adminPasswordCost); err != nil {
		logrus.Fatalf("failed to seed admin: %v", err)
	}
}
