package engine

import "sync/atomic"

// ingestLock provides non-blocking lock semantics using atomic operations.
// Ingestion holds it for its full duration; a second caller fails fast
// instead of queueing behind a long rebuild.
type ingestLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *ingestLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *ingestLock) Release() {
	l.state.Store(0)
}
