package config // package config loads application configuration from environment variables

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Lock backends accepted in LOCK_BACKEND.
const (
	LockLocal = "local"
	LockRedis = "redis"
	LockNone  = "none"
)

// Config holds the runtime configuration of the HTTP server.  Each field
// corresponds to an environment variable.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	StorageDriver string // "mysql" or "memory"
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	LockBackend   string // "local", "redis" or "none"
	LockPrefix    string // key prefix for redis locks
	LockTTL       time.Duration
	LockWait      time.Duration
	LogLevel      string
	LogFormat     string
	LogFile       string // optional rotated log file
	ShutdownWait  time.Duration
}

// Load reads a .env file when one is present, then builds a Config from
// the environment.  Database variables are required only for the mysql
// driver; missing required values are fatal.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		StorageDriver: strings.ToLower(envStr("STORAGE_DRIVER", DriverMySQL)),
		LockBackend:   strings.ToLower(envStr("LOCK_BACKEND", LockLocal)),
		LockPrefix:    envStr("LOCK_PREFIX", "lock"),
		LockTTL:       envDur("LOCK_TTL", 10*time.Second),
		LockWait:      envDur("LOCK_WAIT", 5*time.Second),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LogFormat:     envStr("LOG_FORMAT", "text"),
		LogFile:       os.Getenv("LOG_FILE"),
		ShutdownWait:  envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	switch cfg.StorageDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverMemory:
	default:
		logrus.Fatalf("unknown STORAGE_DRIVER: %q", cfg.StorageDriver)
	}

	switch cfg.LockBackend {
	case LockLocal, LockRedis, LockNone:
	default:
		logrus.Fatalf("unknown LOCK_BACKEND: %q", cfg.LockBackend)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}
