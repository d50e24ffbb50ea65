// Package gate bounds how many renders run concurrently. FFmpeg is memory
// and CPU hungry; admitting every queued job at once would thrash the box.
package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting render-slot semaphore. The zero value is unusable;
// construct with New.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
}

// New returns a gate with the given number of slots. Non-positive
// capacities are treated as 1.
func New(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(capacity)), capacity: capacity}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// TryAcquire grabs a slot without blocking.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release frees a slot taken by Acquire or TryAcquire.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Capacity returns the configured slot count.
func (g *Gate) Capacity() int { return g.capacity }
