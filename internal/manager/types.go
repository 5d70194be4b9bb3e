package manager

import (
	"sync/atomic"
	"time"
)

// handleState is the lifecycle state of a loaded handle. Transitions are
// guarded by the manager's accounting lock.
type handleState string

const (
	stateLoading   handleState = "loading"
	stateLoaded    handleState = "loaded"
	stateUnloading handleState = "unloading"
)

// Handle is the runtime object representing one loaded model instance.
// Exactly one handle exists per loaded model id at any time; the engine
// instance is exclusively owned and is released only when the in-flight
// counter is zero and an unload completes.
type Handle struct {
	ModelID string

	engine  EngineHandle
	MemMB   int
	AccelMB int

	inFlight   atomic.Int64
	lastActive atomic.Int64 // unix nanos
	evict      atomic.Bool  // marked for eviction; consulted by release
	created    time.Time

	state handleState // guarded by Manager.mu

	// Queueing primitives
	genCh   chan struct{} // size = max parallel dispatches
	queueCh chan struct{} // buffered: queue slots
}

// touch records request activity for LRU ordering.
func (h *Handle) touch() { h.lastActive.Store(time.Now().UnixNano()) }

// LastActive returns the last-activity timestamp.
func (h *Handle) LastActive() time.Time { return time.Unix(0, h.lastActive.Load()) }

// InFlight returns the number of requests currently dispatched to the handle.
func (h *Handle) InFlight() int64 { return h.inFlight.Load() }

// handleView is the immutable projection of a handle consumed by the
// admission policy.
type handleView struct {
	ModelID     string
	MemMB       int
	AccelMB     int
	InFlight    int64
	LastActive  time.Time
	EvictMarked bool
}

// loadOp tracks one in-flight load so concurrent callers for the same id
// wait on it instead of double-loading.
type loadOp struct {
	done chan struct{}
	h    *Handle
	err  error
}
