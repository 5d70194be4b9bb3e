package manager

import (
	"sort"
	"time"

	"inferd/pkg/types"
)

// Status builds a read-only snapshot for monitoring and dashboards.
func (m *Manager) Status() types.StatusResponse {
	m.mu.Lock()
	loaded := make([]types.LoadedModelStatus, 0, len(m.handles))
	for _, h := range m.handles {
		loaded = append(loaded, types.LoadedModelStatus{
			ModelID:          h.ModelID,
			State:            string(h.state),
			MemoryReservedMB: h.MemMB,
			AccelReservedMB:  h.AccelMB,
			InFlight:         h.inFlight.Load(),
			QueueLen:         len(h.queueCh),
			MaxQueueDepth:    cap(h.queueCh),
			LastActiveUnix:   h.LastActive().Unix(),
			EvictionPending:  h.evict.Load(),
		})
	}
	reservedMB, reservedAccel := m.reservedMB, m.reservedAccel
	m.mu.Unlock()

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ModelID < loaded[j].ModelID })
	return types.StatusResponse{
		Loaded:          loaded,
		ReservedMB:      reservedMB,
		AccelReservedMB: reservedAccel,
		Budget: types.BudgetStatus{
			MaxModels:    m.budget.MaxModels,
			MaxMemoryMB:  m.budget.MaxMemoryMB,
			MaxAccelMB:   m.budget.MaxAccelMB,
			WarnFraction: m.budget.WarnFraction,
			CritFraction: m.budget.CritFraction,
		},
		Pressure:       string(m.pressure.Pressure()),
		StaleResources: m.pressure.Stale(),
		SessionsActive: m.sessions.count(),
		LoadsTotal:     m.loadsTotal.Load(),
		EvictionsTotal: m.evictionsTotal.Load(),
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
}

// CheckResources reports the monitor fail-safe: an error when resource data
// is too stale to trust (pressure is forced critical in that window).
func (m *Manager) CheckResources() error {
	if m.pressure.Stale() {
		return ErrStaleResourceData()
	}
	return nil
}
