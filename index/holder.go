package index

import (
	"sync/atomic"
	"time"
)

// ShutdownDrainTimeout bounds how long set_current(wait=true) waits for the
// previous state to be released at shutdown (source spec §4.2, §5).
const ShutdownDrainTimeout = 5 * time.Second

// ReleaseFunc releases a SearcherState acquired from a Holder. Must be
// called exactly once, on every exit path.
type ReleaseFunc func()

// Holder is the Searcher Holder (source spec §4.2): it publishes at most one
// "current" read-only view of the index while keeping any number of older
// views alive for readers that already acquired them. Publication is a
// lock-free atomic swap (source spec §9 "Cyclic ownership": "The Holder
// communicates state publication via a lock-free atomic swap").
type Holder struct {
	current atomic.Pointer[SearcherState]
	log     Logger
}

// NewHolder creates a Holder with no current state yet.
func NewHolder(log Logger) *Holder {
	if log == nil {
		log = DiscardLogger
	}
	return &Holder{log: log}
}

// SetCurrent atomically replaces the current state with next. The previous
// state is not destroyed; it is released, and its resources are freed once
// its last reader releases it. If wait is true, SetCurrent blocks (up to
// ShutdownDrainTimeout) until the previous state has been fully released.
func (h *Holder) SetCurrent(next *SearcherState, wait bool) {
	prev := h.current.Swap(next)
	if prev == nil {
		return
	}

	if !wait {
		prev.release()
		return
	}

	done := make(chan struct{})
	prev.SetOnRelease(func() { close(done) })
	prev.release()

	select {
	case <-done:
	case <-time.After(ShutdownDrainTimeout):
		h.log.Warnf("timed out after %s waiting for previous searcher generation %d to drain", ShutdownDrainTimeout, prev.generation)
	}
}

// Acquire atomically takes the current state and increments its refcount.
// The returned ReleaseFunc MUST be called on every exit path.
func (h *Holder) Acquire() (*SearcherState, ReleaseFunc) {
	state := h.current.Load()
	if state == nil {
		return nil, func() {}
	}
	state.acquire()
	return state, func() { state.release() }
}

// AcquireWithStoredFields is Acquire plus direct access to the precomputed
// stored-fields array, for fast projection without reopening each document.
func (h *Holder) AcquireWithStoredFields() (*SearcherState, map[string]map[string]interface{}, ReleaseFunc) {
	state, release := h.Acquire()
	if state == nil {
		return nil, nil, release
	}
	return state, state.StoredFields(), release
}

// Current peeks at the published state without acquiring a reference. Only
// safe to call from the single writer goroutine (serialized by the Index's
// write lock) to attach a retire hook before the next publish; never use
// this from a query path in place of Acquire.
func (h *Holder) Current() *SearcherState {
	return h.current.Load()
}

// CurrentGeneration returns the currently published generation, or 0 if none yet.
func (h *Holder) CurrentGeneration() uint64 {
	state := h.current.Load()
	if state == nil {
		return 0
	}
	return state.generation
}
