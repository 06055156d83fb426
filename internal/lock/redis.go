package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so
// a holder whose lease expired cannot release somebody else's lock.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// Redis is a Locker shared by every instance talking to the same Redis.
// Each key is a SET NX PX lease; TTL bounds how long a crashed holder can
// keep a property locked.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedis builds a Redis locker.  wait is the longest Lock will poll for
// a busy key before giving up with ErrNotAcquired.
func NewRedis(rdb *redis.Client, prefix string, ttl, wait time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl, wait: wait, retry: 25 * time.Millisecond}
}

func (r *Redis) key(k string) string { return r.prefix + ":property:" + k }

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	release := func() {
		// Use a fresh context: the request context may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, k := range held {
			_ = releaseScript.Run(rctx, r.rdb, []string{k}, token).Err()
		}
	}

	deadline := time.Now().Add(r.wait)
	for _, k := range keys {
		rk := r.key(k)
		for {
			ok, err := r.rdb.SetNX(ctx, rk, token, r.ttl).Result()
			if err != nil {
				release()
				return nil, fmt.Errorf("redis lock %s: %w", k, err)
			}
			if ok {
				held = append(held, rk)
				break
			}
			if time.Now().After(deadline) {
				release()
				return nil, fmt.Errorf("property %s: %w", k, ErrNotAcquired)
			}
			select {
			case <-ctx.Done():
				release()
				return nil, ctx.Err()
			case <-time.After(r.retry):
			}
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
