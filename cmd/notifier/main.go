package main

import (
	"context"   // Cancellation
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM

	"reservily/internal/config"  // Configuration
	"reservily/internal/logging" // Logger setup
	"reservily/internal/notify"  // Queue and mail delivery

	"github.com/sirupsen/logrus" // Structured logging
)

// Consumes queued notifications and sends them over SMTP
func main() {
	cfg := config.LoadConfig()
	logging.Setup(cfg.IsProd, cfg.LogLevel)

	queue, err := notify.DialQueue(cfg.RabbitMQURL, cfg.NotifyExchange, cfg.NotifyQueue)
	if err != nil {
		logrus.Fatalf("failed to connect notification queue: %v", err)
	}
	defer queue.Close()

	mailer := notify.NewMailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := queue.Consume(ctx, mailer.Send); err != nil {
		logrus.Fatalf("notification consumer stopped: %v", err)
	}
	logrus.Info("notification consumer stopped")
}
