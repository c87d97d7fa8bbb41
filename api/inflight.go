package api

import (
	"context"
	"sync"
)

// InflightCall represents one in-flight request shared between the
// owner that executes it and any waiters that coalesced on its key.
type InflightCall struct {
	mu      sync.Mutex
	body    []byte
	err     error
	done    chan struct{}
	waiters int
}

// InflightTracker collapses concurrent cache-miss requests for the same
// key into a single network call. At most one call exists per key at
// any time; every caller attached to it receives the identical result.
type InflightTracker struct {
	mu    sync.Mutex
	calls map[string]*InflightCall
}

// NewInflightTracker returns an in-memory in-flight tracker.
func NewInflightTracker() *InflightTracker {
	return &InflightTracker{
		calls: make(map[string]*InflightCall),
	}
}

// Join returns the call for key. The first caller per key becomes the
// owner (owner=true) and must eventually Complete; later callers attach
// as waiters and should Wait.
func (t *InflightTracker) Join(key string) (*InflightCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if call, exists := t.calls[key]; exists {
		call.mu.Lock()
		call.waiters++
		call.mu.Unlock()
		return call, false
	}

	call := &InflightCall{
		done:    make(chan struct{}),
		waiters: 1,
	}
	t.calls[key] = call
	return call, true
}

// Complete finalizes the call for key with the outcome of the single
// network call and releases every waiter. The call is removed from the
// tracker immediately, so a later request for the same key starts a
// fresh call.
func (t *InflightTracker) Complete(key string, body []byte, err error) {
	t.mu.Lock()
	call, exists := t.calls[key]
	delete(t.calls, key)
	t.mu.Unlock()

	if !exists {
		return
	}

	call.mu.Lock()
	call.body = body
	call.err = err
	call.mu.Unlock()
	close(call.done)
}

// Wait blocks until the owning request completes or ctx cancels. Every
// waiter on the same call observes the same body and error.
func (call *InflightCall) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-call.done:
		call.mu.Lock()
		body, err := call.body, call.err
		call.mu.Unlock()
		return body, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
