// Package syncutil provides small concurrency primitives used around
// the engine.
package syncutil

import (
	"context"
	"sync"
)

// KeyedLock serializes work per key. The engine mutates one document
// per (kind, conversation) without store-level locking, so everything
// that drives it concurrently must hold the conversation's lock first.
type KeyedLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{slots: make(map[string]chan struct{})}
}

func (l *KeyedLock) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}

// Acquire blocks until the key's lock is available or ctx is
// cancelled.
func (l *KeyedLock) Acquire(ctx context.Context, key string) error {
	select {
	case l.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire acquires the key's lock without blocking.
func (l *KeyedLock) TryAcquire(key string) bool {
	select {
	case l.slot(key) <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the key's lock. Must follow a successful Acquire or
// TryAcquire.
func (l *KeyedLock) Release(key string) {
	select {
	case <-l.slot(key):
	default:
	}
}
