package manager

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errHandleRevoked signals the handle was evicted between load resolution and
// dispatch; the coordinator retries with a fresh load.
var errHandleRevoked = errors.New("handle revoked before dispatch")

// beginDispatch reserves a queue slot and a dispatch slot on the handle, then
// takes the in-flight reference. The reference is taken only once dispatch
// begins, so a request canceled while queued needs no handle bookkeeping.
// Returns a scoped release func to be deferred; it is safe to call once and
// only once releases.
func (m *Manager) beginDispatch(ctx context.Context, h *Handle) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// One deadline covers both acquisitions: queueing and waiting for the
	// dispatch slot together never exceed maxWait.
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case h.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, overloadedError{modelID: h.ModelID}
	}

	// Wait to acquire a dispatch slot
	acquired := false
	defer func() {
		if !acquired {
			<-h.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case h.genCh <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, overloadedError{modelID: h.ModelID}
	}

	// Dispatch begins: take the in-flight reference under the accounting lock
	// so it can never be taken on a handle already transitioning out.
	m.mu.Lock()
	if m.handles[h.ModelID] != h || h.state != stateLoaded || h.evict.Load() {
		m.mu.Unlock()
		<-h.genCh
		return nil, errHandleRevoked
	}
	h.inFlight.Add(1)
	h.touch()
	m.mu.Unlock()
	acquired = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-h.genCh
			<-h.queueCh
			m.release(h)
		})
	}
	return release, nil
}
