package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/monitor"
	"inferd/internal/registry"
	"inferd/pkg/types"
)

// Manager owns the set of loaded model handles and all transitions on them.
// All mutations of the loaded set and its reserved-memory accounting pass
// through mu; critical sections are kept tiny (map and counter updates only,
// never engine calls).
type Manager struct {
	mu      sync.Mutex
	handles map[string]*Handle
	loading map[string]*loadOp
	// pending reservations for loads admitted but not yet published
	pendingMB      int
	pendingAccelMB int
	pendingLoads   int
	reservedMB     int
	reservedAccel  int

	registry  *registry.Store
	pressure  PressureSource
	budget    monitor.Budget
	engine    Engine
	publisher EventPublisher
	log       zerolog.Logger
	sessions  *sessionTable

	defaultModel  string
	maxQueueDepth int
	maxParallel   int
	maxWait       time.Duration
	drainTimeout  time.Duration
	loadTimeout   time.Duration
	engineCtx     int
	engineThreads int

	loadsTotal     atomic.Uint64
	evictionsTotal atomic.Uint64
	startTime      time.Time
}

// Ready reports whether at least one handle is loaded.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		if h.state == stateLoaded {
			return true
		}
	}
	return false
}

// IsLoaded reports whether id currently has a handle.
func (m *Manager) IsLoaded(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handles[id]
	return ok
}

// ListModels returns the registered descriptors.
func (m *Manager) ListModels() []types.ModelDescriptor {
	return m.registry.List()
}

// RegisterModel adds or force-replaces a descriptor in the registry. A
// force-replace is refused while the prior descriptor has a loaded handle.
// Re-registering clears a sticky failed status.
func (m *Manager) RegisterModel(d types.ModelDescriptor, force bool) error {
	return m.registry.Register(d, force)
}

// Budget returns the static resource budget.
func (m *Manager) Budget() monitor.Budget { return m.budget }

// loadedViews snapshots the loaded set for the admission policy. Caller must
// hold mu.
func (m *Manager) loadedViewsLocked() []handleView {
	out := make([]handleView, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, handleView{
			ModelID:     h.ModelID,
			MemMB:       h.MemMB,
			AccelMB:     h.AccelMB,
			InFlight:    h.inFlight.Load(),
			LastActive:  h.LastActive(),
			EvictMarked: h.evict.Load(),
		})
	}
	return out
}
