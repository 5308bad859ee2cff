package lock

import (
	"context"
	"sync"
)

// MutexLock is an in-process Locker backed by sync.Mutex. Correct for
// the Lite profile and any single-process deployment, since SQLite
// access is already confined to this one process.
type MutexLock struct {
	mu sync.Mutex
}

// NewMutexLock returns a ready-to-use MutexLock.
func NewMutexLock() *MutexLock {
	return &MutexLock{}
}

// Acquire blocks until the mutex is held. ctx is accepted to satisfy
// Locker but is not consulted: hold times are bounded by Store I/O
// latency, not by client-controlled waits.
func (l *MutexLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	return nil
}

// Release unlocks the mutex.
func (l *MutexLock) Release(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}
