package manager

import (
	"time"

	"inferd/pkg/types"
)

// RequestUnload marks a model for eviction. If no requests are in flight the
// unload completes immediately; otherwise the flag is consulted by release
// and the unload completes when the in-flight counter drains to zero.
func (m *Manager) RequestUnload(modelID string) error {
	if modelID == "" {
		return unknownModelError{id: "(unspecified)"}
	}
	m.mu.Lock()
	h := m.handles[modelID]
	if h == nil {
		m.mu.Unlock()
		if _, ok := m.registry.Get(modelID); !ok {
			return unknownModelError{id: modelID}
		}
		return nil // not loaded, nothing to do
	}
	h.evict.Store(true)
	if h.inFlight.Load() == 0 && h.state == stateLoaded {
		h.state = stateUnloading
		m.mu.Unlock()
		m.completeUnload(h)
		return nil
	}
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: "unload_deferred", ModelID: modelID, Fields: map[string]any{"in_flight": h.inFlight.Load()}})
	return nil
}

// evictForLoad unloads a policy-selected victim, waiting up to drainTimeout
// for its in-flight requests to finish. On timeout the eviction is abandoned
// (the victim keeps serving) and the dependent load is rejected.
func (m *Manager) evictForLoad(victim string) error {
	m.mu.Lock()
	h := m.handles[victim]
	if h == nil {
		m.mu.Unlock()
		return nil
	}
	h.evict.Store(true)
	if h.inFlight.Load() == 0 && h.state == stateLoaded {
		h.state = stateUnloading
		m.mu.Unlock()
		m.completeUnload(h)
		return nil
	}
	m.mu.Unlock()

	deadline := time.Now().Add(m.drainTimeout)
	for {
		m.mu.Lock()
		cur := m.handles[victim]
		m.mu.Unlock()
		if cur == nil || cur != h {
			return nil
		}
		if time.Now().After(deadline) {
			m.mu.Lock()
			if m.handles[victim] == h && h.state == stateLoaded {
				h.evict.Store(false)
			}
			m.mu.Unlock()
			m.publisher.Publish(Event{Name: "eviction_timeout", ModelID: victim, Fields: map[string]any{}})
			return evictionTimeoutError{victim: victim}
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// release decrements the in-flight counter and, when it reaches zero on a
// handle marked for eviction, completes the pending unload. Callers obtain it
// exclusively through the scoped release func returned by beginDispatch, so
// no code path can leak or double-decrement the counter.
func (m *Manager) release(h *Handle) {
	n := h.inFlight.Add(-1)
	if n < 0 {
		h.inFlight.Store(0)
		m.log.Error().Str("model", h.ModelID).Msg("invariant violation: in-flight counter went negative")
		return
	}
	h.touch()
	if n == 0 && h.evict.Load() {
		m.mu.Lock()
		if m.handles[h.ModelID] == h && h.state == stateLoaded && h.inFlight.Load() == 0 {
			h.state = stateUnloading
			m.mu.Unlock()
			m.completeUnload(h)
			return
		}
		m.mu.Unlock()
	}
}

// completeUnload finishes an unload transition. The caller must already have
// moved the handle to stateUnloading under the accounting lock, which also
// guarantees the in-flight counter was zero and no new dispatch can begin.
// By construction this cannot fail: engine errors are logged, the handle is
// removed regardless.
func (m *Manager) completeUnload(h *Handle) {
	if n := h.inFlight.Load(); n > 0 {
		// Programming error: abort this operation, leave the handle serving.
		m.log.Error().Str("model", h.ModelID).Int64("in_flight", n).Msg("invariant violation: unload observed with in-flight requests")
		m.mu.Lock()
		if m.handles[h.ModelID] == h {
			h.state = stateLoaded
		}
		m.mu.Unlock()
		return
	}
	// A straggler holding a replaced handle must not touch the resident one
	// or its registry status.
	m.mu.Lock()
	if m.handles[h.ModelID] != h {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.registry.SetStatus(h.ModelID, types.StatusUnloading)
	m.publisher.Publish(Event{Name: "unload_start", ModelID: h.ModelID, Fields: map[string]any{}})

	if err := h.engine.Unload(); err != nil {
		m.log.Warn().Err(err).Str("model", h.ModelID).Msg("engine unload reported error")
	}

	m.mu.Lock()
	if m.handles[h.ModelID] == h {
		delete(m.handles, h.ModelID)
		m.reservedMB -= h.MemMB
		m.reservedAccel -= h.AccelMB
		if m.reservedMB < 0 {
			m.reservedMB = 0
		}
		if m.reservedAccel < 0 {
			m.reservedAccel = 0
		}
		// Status moves back under the same lock the deletion happens under:
		// a waiter can only observe the handle gone and begin a fresh load
		// after this section, so StatusRegistered cannot overwrite a newer
		// StatusLoading. A stale handle never touches the status.
		m.registry.SetStatus(h.ModelID, types.StatusRegistered)
	}
	loaded, resMB, resAccel := len(m.handles), m.reservedMB, m.reservedAccel
	m.mu.Unlock()
	m.evictionsTotal.Add(1)
	recordEviction()
	updateResourceGauges(loaded, resMB, resAccel)
	m.publisher.Publish(Event{Name: "unload_done", ModelID: h.ModelID, Fields: map[string]any{}})
	m.log.Info().Str("model", h.ModelID).Msg("model unloaded")
}

// Close drains and unloads every handle. Used on shutdown.
func (m *Manager) Close() error {
	for _, d := range m.registry.List() {
		if m.IsLoaded(d.ID) {
			_ = m.RequestUnload(d.ID)
		}
	}
	return nil
}
