package api

import "sync/atomic"

// Dispatcher tags asynchronous lookups with a generation marker so the
// UI loop can navigate away without forcibly aborting in-flight calls:
// a completed result whose generation no longer matches is discarded
// instead of applied.
type Dispatcher struct {
	gen atomic.Uint64
}

// Bump invalidates all previously dispatched lookups and returns the
// new current generation.
func (d *Dispatcher) Bump() uint64 {
	return d.gen.Add(1)
}

// Generation returns the current generation.
func (d *Dispatcher) Generation() uint64 {
	return d.gen.Load()
}

// Live reports whether a lookup tagged with gen should still be applied.
func (d *Dispatcher) Live(gen uint64) bool {
	return d.gen.Load() == gen
}

// Dispatch runs fn on its own goroutine and invokes deliver with the
// result only if gen is still current at completion. The underlying
// call always runs to completion; staleness only suppresses delivery.
func (d *Dispatcher) Dispatch(gen uint64, fn func() (interface{}, error), deliver func(interface{}, error)) {
	go func() {
		value, err := fn()
		if d.Live(gen) {
			deliver(value, err)
		}
	}()
}
