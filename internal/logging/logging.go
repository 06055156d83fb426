// Package logging builds the logrus logger shared by the server and the
// event worker.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// Options selects the level, the format ("text" or "json") and an optional
// rotated log file.  With File empty the logger writes to stdout.
type Options struct {
	Level    string
	Format   string
	File     string
	Rotation time.Duration
}

// New returns a logger configured from opts.  An unknown level falls back
// to info; an unknown format falls back to text.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		w, err := RotatingFile(opts.File, opts.Rotation)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, w)
	}
	logger.SetOutput(out)
	return logger, nil
}

// RotatingFile opens path as a time-rotated log file.  Files are suffixed
// with the rotation timestamp and path itself links to the current one.
func RotatingFile(path string, every time.Duration) (*rotatelogs.RotateLogs, error) {
	if every <= 0 {
		every = 24 * time.Hour
	}
	return rotatelogs.New(
		path+"_%Y%m%d%H%M",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(every),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
}
