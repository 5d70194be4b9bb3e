package manager

import (
	"context"
	"errors"
	"time"

	"inferd/pkg/types"
)

// RequestLoad resolves the model to a loaded handle, loading it first if
// necessary. Concurrent calls for the same id result in exactly one engine
// load; all callers receive the same handle.
func (m *Manager) RequestLoad(ctx context.Context, modelID string) (*Handle, error) {
	return m.requestLoad(ctx, modelID, false)
}

func (m *Manager) requestLoad(ctx context.Context, modelID string, sessionBound bool) (*Handle, error) {
	desc, ok := m.registry.Get(modelID)
	if !ok {
		return nil, unknownModelError{id: modelID}
	}
	// Engine load failures are sticky until an administrator re-registers.
	if desc.Status == types.StatusFailed {
		return nil, engineLoadError{id: modelID, cause: errors.New("previous load failed; re-register to retry")}
	}

	deadline := time.Now().Add(m.loadTimeout)
	for {
		m.mu.Lock()
		if h := m.handles[modelID]; h != nil {
			if h.state == stateLoaded && !h.evict.Load() {
				h.touch()
				m.mu.Unlock()
				return h, nil
			}
			// A drain or unload is in progress for this id; wait for the old
			// handle to go away before loading fresh.
			m.mu.Unlock()
			if err := m.waitGone(ctx, modelID, deadline); err != nil {
				return nil, err
			}
			continue
		}
		if op := m.loading[modelID]; op != nil {
			// Another caller is loading; wait on that operation instead of
			// double-loading.
			m.mu.Unlock()
			select {
			case <-op.done:
				return op.h, op.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		op := &loadOp{done: make(chan struct{})}
		m.loading[modelID] = op
		m.mu.Unlock()

		h, err := m.performLoad(ctx, modelID, desc, sessionBound)

		m.mu.Lock()
		delete(m.loading, modelID)
		m.mu.Unlock()
		op.h, op.err = h, err
		close(op.done)
		return h, err
	}
}

// performLoad runs admission, evicts any selected victims, and invokes the
// engine's load primitive. Exactly one performLoad runs per model id at a
// time (enforced by the loading map).
func (m *Manager) performLoad(ctx context.Context, modelID string, desc types.ModelDescriptor, sessionBound bool) (*Handle, error) {
	start := time.Now()
	memMB := estimateMemMB(desc)
	req := admitRequest{
		ModelID:      modelID,
		MemMB:        memMB,
		AccelMB:      desc.EstAccelMB,
		SessionBound: sessionBound || m.sessions.anyBoundTo(modelID),
	}

	m.mu.Lock()
	pressure := m.pressure.Pressure()
	dec := decide(req, m.loadedViewsLocked(), m.pendingMB, m.pendingAccelMB, m.pendingLoads, pressure, m.budget)
	if dec.Kind == DecisionReject {
		m.mu.Unlock()
		reason := dec.Reason
		if IsUnderPressure(reason) && m.pressure.Stale() {
			reason = underPressureError{id: modelID, detail: staleResourceError{}.Error()}
		}
		recordReject(rejectReason(reason))
		m.publisher.Publish(Event{Name: "load_rejected", ModelID: modelID, Fields: map[string]any{"reason": reason.Error(), "pressure": string(pressure)}})
		m.log.Warn().Str("model", modelID).Str("pressure", string(pressure)).Err(reason).Msg("load rejected")
		return nil, reason
	}
	// Reserve before releasing the lock so concurrent admissions see this
	// load's projected cost.
	m.pendingMB += memMB
	m.pendingAccelMB += desc.EstAccelMB
	m.pendingLoads++
	m.mu.Unlock()

	rollback := func() {
		m.mu.Lock()
		m.pendingMB -= memMB
		m.pendingAccelMB -= desc.EstAccelMB
		m.pendingLoads--
		m.mu.Unlock()
	}

	for _, victim := range dec.Victims {
		if err := m.evictForLoad(victim); err != nil {
			rollback()
			recordReject(rejectReason(err))
			m.publisher.Publish(Event{Name: "load_abandoned", ModelID: modelID, Fields: map[string]any{"victim": victim}})
			return nil, err
		}
	}

	m.registry.SetStatus(modelID, types.StatusLoading)
	m.publisher.Publish(Event{Name: "load_start", ModelID: modelID, Fields: map[string]any{"mem_mb": memMB}})

	loadCtx, cancel := context.WithTimeout(ctx, m.loadTimeout)
	defer cancel()
	eh, err := m.engine.Load(loadCtx, desc.Path, LoadParams{CtxSize: m.engineCtx, Threads: m.engineThreads})
	if err != nil {
		rollback()
		if IsDependencyUnavailable(err) {
			// Not the artifact's fault; leave the descriptor retryable.
			m.registry.SetStatus(modelID, types.StatusRegistered)
			return nil, err
		}
		if loadCtx.Err() != nil {
			m.registry.SetStatus(modelID, types.StatusRegistered)
			m.publisher.Publish(Event{Name: "load_timeout", ModelID: modelID, Fields: map[string]any{}})
			return nil, loadTimeoutError{id: modelID}
		}
		m.registry.SetStatus(modelID, types.StatusFailed)
		m.publisher.Publish(Event{Name: "load_failed", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
		m.log.Error().Err(err).Str("model", modelID).Msg("engine load failed")
		return nil, engineLoadError{id: modelID, cause: err}
	}

	h := &Handle{
		ModelID: modelID,
		engine:  eh,
		MemMB:   memMB,
		AccelMB: desc.EstAccelMB,
		created: time.Now(),
		state:   stateLoaded,
		genCh:   make(chan struct{}, m.maxParallel),
		queueCh: make(chan struct{}, m.maxQueueDepth),
	}
	h.touch()

	m.mu.Lock()
	m.pendingMB -= memMB
	m.pendingAccelMB -= desc.EstAccelMB
	m.pendingLoads--
	// Final invariant check before publishing: admission plus evictions must
	// have made room. A violation aborts this load only.
	if (m.budget.MaxMemoryMB > 0 && m.reservedMB+memMB > m.budget.MaxMemoryMB) ||
		(m.budget.MaxModels > 0 && len(m.handles)+1 > m.budget.MaxModels) {
		m.mu.Unlock()
		_ = eh.Unload()
		m.registry.SetStatus(modelID, types.StatusRegistered)
		err := invariantError{msg: "budget exceeded at publish for " + modelID}
		m.log.Error().Str("model", modelID).Msg(err.Error())
		return nil, err
	}
	m.handles[modelID] = h
	m.reservedMB += memMB
	m.reservedAccel += desc.EstAccelMB
	loaded, resMB, resAccel := len(m.handles), m.reservedMB, m.reservedAccel
	m.mu.Unlock()

	m.registry.SetStatus(modelID, types.StatusLoaded)
	m.loadsTotal.Add(1)
	recordLoad()
	updateResourceGauges(loaded, resMB, resAccel)
	m.publisher.Publish(Event{Name: "load_ready", ModelID: modelID, Fields: map[string]any{"dur_ms": int(time.Since(start) / time.Millisecond)}})
	m.log.Info().Str("model", modelID).Int("mem_mb", memMB).Dur("dur", time.Since(start)).Msg("model loaded")
	return h, nil
}

// waitGone polls until no handle exists for id, the context is canceled, or
// the deadline passes.
func (m *Manager) waitGone(ctx context.Context, modelID string, deadline time.Time) error {
	for {
		m.mu.Lock()
		_, present := m.handles[modelID]
		m.mu.Unlock()
		if !present {
			return nil
		}
		if time.Now().After(deadline) {
			return loadTimeoutError{id: modelID}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// rejectReason maps typed errors to a low-cardinality metric label.
func rejectReason(err error) string {
	switch {
	case IsInsufficientResources(err):
		return "insufficient_resources"
	case IsUnderPressure(err):
		return "under_pressure"
	case IsEvictionTimeout(err):
		return "eviction_timeout"
	case IsLoadTimeout(err):
		return "load_timeout"
	default:
		return "other"
	}
}
