// Package lock provides per-property mutual exclusion for reservation
// writers.  A Locker is taken before the storage unit of work so that
// several service instances sharing one database queue on the same
// property instead of contending inside the database.
package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrNotAcquired is returned when a lock could not be obtained within the
// configured wait.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires exclusive locks on a set of keys.  The returned unlock
// function releases all of them and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// Nop performs no locking.  It is used when the store alone serialises
// writers (LOCK_BACKEND=none).
type Nop struct{}

func (Nop) Lock(context.Context, ...string) (func(), error) { return func() {}, nil }

// normalize sorts and deduplicates keys, dropping empty ones.  Taking
// locks in a fixed order prevents two multi-key holders from deadlocking.
func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
