package service

import (
	"context"
	"sync"
)

// trackedKey marks bus messages counted by a PersistenceTracker.
const trackedKey = "tracked"

// PersistenceTracker counts persistence jobs that were published but not yet
// handled by the consumer, so shutdown can wait for the bus to drain before
// closing it.
type PersistenceTracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{} // closed while n == 0
}

func NewPersistenceTracker() *PersistenceTracker {
	idle := make(chan struct{})
	close(idle)
	return &PersistenceTracker{idle: idle}
}

func (t *PersistenceTracker) add() {
	t.mu.Lock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
	t.mu.Unlock()
}

func (t *PersistenceTracker) done() {
	t.mu.Lock()
	if t.n > 0 {
		t.n--
		if t.n == 0 {
			close(t.idle)
		}
	}
	t.mu.Unlock()
}

func (t *PersistenceTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Wait blocks until no job is in flight or ctx ends.
func (t *PersistenceTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
