package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"reservily/internal/api"          // Custom package for API handlers
	"reservily/internal/config"       // Custom package for configuration
	"reservily/internal/db"           // Database connection
	"reservily/internal/logging"      // Logger setup
	"reservily/internal/notify"       // Notification backends
	"reservily/internal/storage"      // Proof uploads
	"reservily/internal/subscription" // Expiry sweeper

	"github.com/gin-gonic/gin"                                  // Gin web framework
	"github.com/prometheus/client_golang/prometheus"            // Metrics registry
	"github.com/prometheus/client_golang/prometheus/collectors" // Runtime metrics
	"github.com/redis/go-redis/v9"                              // Redis client
	"github.com/sirupsen/logrus"                                // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	logging.Setup(cfg.IsProd, cfg.LogLevel)

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	defer redisClient.Close()

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	notifier, closeNotifier := buildNotifier(cfg)
	defer closeNotifier()

	deps := api.Deps{
		DB:       gdb,
		Redis:    redisClient,
		Config:   cfg,
		Notifier: notifier,
		Registry: prometheus.NewRegistry(),
	}
	deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.S3Bucket != "" {
		store, err := storage.NewS3Store(cfg)
		if err != nil {
			logrus.Fatalf("failed to configure storage: %v", err)
		}
		if err := store.EnsureBucket(context.Background()); err != nil {
			logrus.WithError(err).Warn("proof bucket is not reachable")
		}
		deps.Uploader = store
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go subscription.NewSweeper(gdb, cfg.ExpirySweepInterval).Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "env": cfg.AppEnv}).Info("Reservily API running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}

// buildNotifier picks the delivery backend named by NOTIFY_DRIVER
func buildNotifier(cfg *config.Config) (notify.Notifier, func()) {
	switch cfg.NotifyDriver {
	case "smtp":
		logrus.WithField("host", cfg.SMTPHost).Info("sending notifications over SMTP")
		return notify.NewMailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom), func() {}
	case "queue":
		q, err := notify.DialQueue(cfg.RabbitMQURL, cfg.NotifyExchange, cfg.NotifyQueue)
		if err != nil {
			logrus.Fatalf("failed to connect notification queue: %v", err)
		}
		return q, func() { q.Close() }
	case "", "log":
		return notify.LogNotifier{}, func() {}
	default:
		logrus.Fatalf("unsupported NOTIFY_DRIVER %q", cfg.NotifyDriver)
		return nil, nil
	}
}
