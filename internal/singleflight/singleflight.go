// Package singleflight provides the mutual exclusion used by the check
// sweep: at most one sweep may run system-wide, and a competing trigger is
// rejected immediately rather than queued.
package singleflight

import (
	"sync/atomic"
)

// Guard is a non-blocking mutual exclusion primitive. The zero value is
// ready to use.
type Guard struct {
	held atomic.Bool
}

// TryAcquire takes the guard if it is free and reports whether it did.
// It never blocks.
func (g *Guard) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release frees the guard. Calling Release without holding the guard is a
// programming error and panics.
func (g *Guard) Release() {
	if !g.held.CompareAndSwap(true, false) {
		panic("singleflight: release of unheld guard")
	}
}

// Busy reports whether the guard is currently held. It is advisory only;
// callers that need the guard must still TryAcquire.
func (g *Guard) Busy() bool {
	return g.held.Load()
}
