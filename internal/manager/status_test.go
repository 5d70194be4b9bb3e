package manager

import (
	"testing"

	"inferd/internal/monitor"
)

func TestStatusSnapshot(t *testing.T) {
	pressure := &fakePressure{}
	pressure.set(monitor.PressureWarning, false)
	reg := newTestRegistry(t, map[string]int{"b": 200, "a": 100})
	m := NewWithConfig(ManagerConfig{
		Registry: reg,
		Engine:   &fakeEngine{},
		Pressure: pressure,
		Budget:   monitor.Budget{MaxModels: 4, MaxMemoryMB: 1000, WarnFraction: 0.8, CritFraction: 0.92},
	})
	ctx := testCtx(t)

	if _, err := m.RequestLoad(ctx, "b"); err != nil {
		t.Fatalf("load b: %v", err)
	}
	if _, err := m.RequestLoad(ctx, "a"); err != nil {
		t.Fatalf("load a: %v", err)
	}

	st := m.Status()
	if len(st.Loaded) != 2 {
		t.Fatalf("expected 2 loaded, got %d", len(st.Loaded))
	}
	// Sorted by model id for stable output.
	if st.Loaded[0].ModelID != "a" || st.Loaded[1].ModelID != "b" {
		t.Fatalf("expected sorted ids, got %+v", st.Loaded)
	}
	if st.Loaded[0].State != "loaded" {
		t.Fatalf("expected loaded state, got %q", st.Loaded[0].State)
	}
	if st.ReservedMB != 300 {
		t.Fatalf("expected 300MB reserved, got %d", st.ReservedMB)
	}
	if st.Budget.MaxMemoryMB != 1000 || st.Budget.MaxModels != 4 {
		t.Fatalf("unexpected budget echo: %+v", st.Budget)
	}
	if st.Pressure != string(monitor.PressureWarning) {
		t.Fatalf("expected warning pressure, got %q", st.Pressure)
	}
	if st.StaleResources {
		t.Fatalf("expected fresh resources")
	}
	if st.LoadsTotal != 2 || st.EvictionsTotal != 0 {
		t.Fatalf("unexpected counters: loads=%d evictions=%d", st.LoadsTotal, st.EvictionsTotal)
	}
	if st.UptimeSeconds < 0 || st.ServerTimeUnix == 0 {
		t.Fatalf("unexpected time fields: %+v", st)
	}
}

func TestNewWithConfigDefaults(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	if m.maxQueueDepth != defaultMaxQueueDepth {
		t.Fatalf("expected default maxQueueDepth=%d got %d", defaultMaxQueueDepth, m.maxQueueDepth)
	}
	if m.maxParallel != defaultMaxParallel {
		t.Fatalf("expected default maxParallel=%d got %d", defaultMaxParallel, m.maxParallel)
	}
	if m.maxWait != defaultMaxWait {
		t.Fatalf("expected default maxWait=%v got %v", defaultMaxWait, m.maxWait)
	}
	if m.drainTimeout != defaultDrainTimeout {
		t.Fatalf("expected default drainTimeout=%v got %v", defaultDrainTimeout, m.drainTimeout)
	}
	if m.sessions == nil || m.sessions.turnCap != defaultTurnCap {
		t.Fatalf("expected session table with default turn cap")
	}
}

func TestRegisterModelLoadedCheck(t *testing.T) {
	reg := newTestRegistry(t, map[string]int{"a": 100})
	m := NewWithConfig(ManagerConfig{Registry: reg, Engine: &fakeEngine{}})

	if _, err := m.RequestLoad(testCtx(t), "a"); err != nil {
		t.Fatalf("load: %v", err)
	}
	d, _ := reg.Get("a")
	// Force-replace of a descriptor backing a live handle is refused.
	if err := m.RegisterModel(d, true); err == nil {
		t.Fatalf("expected refusal to replace a loaded descriptor")
	}
	if err := m.RequestUnload("a"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	d.Status = ""
	if err := m.RegisterModel(d, true); err != nil {
		t.Fatalf("replace after unload: %v", err)
	}
}
