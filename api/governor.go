package api

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Governor bounds the number of simultaneous network calls. Waiters are
// served in arrival order, which prevents starvation under sustained
// load; semaphore.Weighted guarantees FIFO acquisition.
type Governor struct {
	sem   *semaphore.Weighted
	slots int64
}

// NewGovernor creates a governor with maxInflight execution slots. A
// non-positive slot count is a configuration error.
func NewGovernor(maxInflight int) (*Governor, error) {
	if maxInflight <= 0 {
		return nil, configError("max_inflight must be positive")
	}
	return &Governor{
		sem:   semaphore.NewWeighted(int64(maxInflight)),
		slots: int64(maxInflight),
	}, nil
}

// Acquire blocks until one execution slot is available or ctx is done.
func (g *Governor) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release returns a slot. Must be called exactly once per successful
// Acquire, regardless of how the guarded call ended.
func (g *Governor) Release() {
	g.sem.Release(1)
}

// Slots returns the configured maximum in-flight count.
func (g *Governor) Slots() int {
	return int(g.slots)
}
