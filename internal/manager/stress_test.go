package manager

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"inferd/internal/monitor"
)

// TestInterleavedLifecycleInvariants interleaves loads, dispatches, releases,
// and unloads across workers and asserts the accounting invariants hold at
// every quiescent point: the in-flight counter never goes negative, no
// destroyed handle is dispatched to, and reservations match the loaded set.
func TestInterleavedLifecycleInvariants(t *testing.T) {
	eng := &fakeEngine{}
	reg := newTestRegistry(t, map[string]int{"a": 100, "b": 100, "c": 100})
	m := NewWithConfig(ManagerConfig{
		Registry:     reg,
		Engine:       eng,
		Budget:       monitor.Budget{MaxModels: 2, MaxMemoryMB: 250},
		DrainTimeout: 100 * time.Millisecond,
		MaxWait:      100 * time.Millisecond,
	})
	ctx := testCtx(t)
	ids := []string{"a", "b", "c"}

	const workers = 8
	const iters = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < iters; i++ {
				id := ids[rng.Intn(len(ids))]
				switch rng.Intn(4) {
				case 0, 1:
					// Load and dispatch one request.
					h, err := m.RequestLoad(ctx, id)
					if err != nil {
						continue // admission rejects are expected under contention
					}
					release, err := m.beginDispatch(ctx, h)
					if err != nil {
						continue
					}
					if n := h.InFlight(); n < 1 {
						t.Errorf("dispatched with in-flight %d", n)
					}
					time.Sleep(time.Duration(rng.Intn(3)) * time.Millisecond)
					release()
				case 2:
					_ = m.RequestUnload(id)
				case 3:
					_, _ = m.RequestLoad(ctx, id)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	// Quiescent: every counter drained, reservations match the loaded set.
	m.mu.Lock()
	var sumMB int
	for id, h := range m.handles {
		if n := h.inFlight.Load(); n != 0 {
			t.Fatalf("handle %s left with in-flight %d", id, n)
		}
		sumMB += h.MemMB
	}
	if sumMB != m.reservedMB {
		t.Fatalf("reserved %dMB but loaded handles sum to %dMB", m.reservedMB, sumMB)
	}
	if m.reservedMB > 250 {
		t.Fatalf("budget exceeded: %dMB reserved", m.reservedMB)
	}
	if len(m.handles) > 2 {
		t.Fatalf("model cap exceeded: %d loaded", len(m.handles))
	}
	if m.pendingMB != 0 || m.pendingLoads != 0 {
		t.Fatalf("pending reservations leaked: %dMB / %d loads", m.pendingMB, m.pendingLoads)
	}
	m.mu.Unlock()

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if loads, unloads := eng.loads.Load(), eng.unloads.Load(); loads != unloads {
		t.Fatalf("engine instances leaked: %d loads vs %d unloads", loads, unloads)
	}
}
