package main

import (
	"reservily/internal/config"  // Custom import path (Config)
	"reservily/internal/db"      // Custom import path (Database)
	"reservily/internal/logging" // Logger setup

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	logging.Setup(cfg.IsProd, cfg.LogLevel)

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate: %v", err)
	}
}
