package lock

import (
	"context"
	"sync"
)

// Local is an in-process Locker.  Entries are reference counted and
// removed once nobody holds or waits on them, so memory stays bounded by
// the number of properties being written concurrently.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{entries: make(map[string]*localEntry)}
}

func (l *Local) acquireRef(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) releaseRef(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Lock blocks until every key is held or ctx is done.
func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	held := make([]string, 0, len(keys))
	heldEntries := make([]*localEntry, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-heldEntries[i].sem
			l.releaseRef(held[i], heldEntries[i])
		}
	}

	for _, k := range keys {
		e := l.acquireRef(k)
		select {
		case e.sem <- struct{}{}:
			held = append(held, k)
			heldEntries = append(heldEntries, e)
		case <-ctx.Done():
			l.releaseRef(k, e)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
