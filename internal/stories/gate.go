package stories

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate caps how many story retrievals run at once. One Gate is built at
// startup and shared by every Service call, so concurrent requests compete
// for the same slots.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
}

// NewGate returns a gate with capacity slots; capacity below one is raised
// to one.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(capacity)), capacity: capacity}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inFlight.Add(1)
	return nil
}

// Release frees a slot taken by a successful Acquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Capacity is the number of slots the gate was built with.
func (g *Gate) Capacity() int { return g.capacity }

// InFlight is the number of slots currently held.
func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }
