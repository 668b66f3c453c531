package lock

import (
	"context"
	"sync"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
)

type holder struct {
	token     uint64
	expiresAt time.Time
}

// InMemoryKeyedLock implements shared.KeyedLock with a process-local map.
// Suitable for single-instance deployments and tests.
type InMemoryKeyedLock struct {
	mu        sync.Mutex
	holders   map[string]holder
	nextToken uint64
}

// NewInMemoryKeyedLock creates a new in-memory keyed lock
func NewInMemoryKeyedLock() *InMemoryKeyedLock {
	return &InMemoryKeyedLock{holders: make(map[string]holder)}
}

// TryAcquire attempts to take the lock for key without blocking
func (l *InMemoryKeyedLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, held := l.holders[key]; held && time.Now().Before(h.expiresAt) {
		return nil, false, nil
	}
	l.nextToken++
	token := l.nextToken
	l.holders[key] = holder{token: token, expiresAt: time.Now().Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// Only release our own hold; a later holder after TTL expiry keeps it.
		if h, held := l.holders[key]; held && h.token == token {
			delete(l.holders, key)
		}
	}
	return release, true, nil
}

// Held reports whether key is currently locked
func (l *InMemoryKeyedLock) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, held := l.holders[key]
	return held && time.Now().Before(h.expiresAt)
}

var _ shared.KeyedLock = (*InMemoryKeyedLock)(nil)
