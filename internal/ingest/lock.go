package ingest

import "sync/atomic"

// Lock guards against overlapping ingest runs without blocking the caller
type Lock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire reports whether the lock was taken
func (l *Lock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release must only be called by the holder
func (l *Lock) Release() {
	l.state.Store(0)
}
