// Command worker consumes reservation events from RabbitMQ and appends
// them to a rotated log file.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/config"
	"github.com/iliyamo/property-reservation/internal/logging"
	"github.com/iliyamo/property-reservation/internal/queue"
)

func main() {
	_ = godotenv.Load()

	logger, err := logging.New(logging.Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	ev := config.LoadEventsConfig()
	if err := os.MkdirAll(filepath.Dir(ev.LogPath), 0o755); err != nil {
		logger.Fatalf("mkdir %s: %v", filepath.Dir(ev.LogPath), err)
	}
	out, err := logging.RotatingFile(ev.LogPath, ev.LogRotation)
	if err != nil {
		logger.Fatalf("open event log: %v", err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: ev.URL, Queue: ev.Queue, Out: out, Logger: logger}
	logger.WithFields(logrus.Fields{"queue": ev.Queue, "file": ev.LogPath}).Info("worker started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("worker stopped")
		return
	}
	logger.Info("worker stopped")
}
