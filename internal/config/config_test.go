package config

import (
	"testing"
	"time"
)

func TestLoadMemoryDriverSkipsDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("LOCK_BACKEND", "none")
	t.Setenv("LOCK_TTL", "3s")

	cfg := Load()
	if cfg.StorageDriver != DriverMemory || cfg.LockBackend != LockNone {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DBHost != "" {
		t.Fatalf("db host read for memory driver: %q", cfg.DBHost)
	}
	if cfg.LockTTL != 3*time.Second || cfg.LockWait != 5*time.Second {
		t.Fatalf("lock durations = %s %s", cfg.LockTTL, cfg.LockWait)
	}
}

func TestLoadMySQLReadsDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("STORAGE_DRIVER", "mysql")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "reservations")

	cfg := Load()
	if cfg.DBUser != "root" || cfg.DBHost != "db" || cfg.DBName != "reservations" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.LockBackend != LockLocal {
		t.Fatalf("default lock backend = %q", cfg.LockBackend)
	}
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	if rl.Capacity != 1 || rl.RefillTokens != 1 || rl.RefillInterval != 2*time.Second {
		t.Fatalf("rl = %+v", rl)
	}
	if rl.TTL != 10*time.Second {
		t.Fatalf("ttl = %s, want 5 refill intervals", rl.TTL)
	}
}

func TestCacheMethodsUpperCased(t *testing.T) {
	t.Setenv("CACHE_METHODS", " get, head ,")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
		t.Fatalf("methods = %v", c.Methods)
	}
	if c.KeyStrategy != "path_query" {
		t.Fatalf("strategy = %q", c.KeyStrategy)
	}
}

func TestEventsConfigFallbacks(t *testing.T) {
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	t.Setenv("EVENTS_ENABLED", "yes")
	t.Setenv("EVENTS_BREAKER_MAX_FAILURES", "0")

	ev := LoadEventsConfig()
	if !ev.Enabled || ev.URL != "amqp://u:p@mq:5672/" || ev.Queue != "reservation.events" {
		t.Fatalf("ev = %+v", ev)
	}
	if ev.BreakerMaxFailures != 1 {
		t.Fatalf("breaker failures = %d", ev.BreakerMaxFailures)
	}
}

func TestRedisConfigHostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TLS", "1")
	r := LoadRedisConfig()
	if r.Addr != "cache:6380" || !r.TLS {
		t.Fatalf("redis = %+v", r)
	}
}
