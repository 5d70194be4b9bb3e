package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSampler returns queued snapshots, then an error when exhausted.
type fakeSampler struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (f *fakeSampler) Sample() (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Snapshot{}, f.err
	}
	if len(f.snaps) == 0 {
		return Snapshot{}, errors.New("no more samples")
	}
	s := f.snaps[0]
	if len(f.snaps) > 1 {
		f.snaps = f.snaps[1:]
	}
	return s, nil
}

func memSnap(usedMB, totalMB int) Snapshot {
	return Snapshot{TakenAt: time.Now(), MemUsedMB: usedMB, MemTotalMB: totalMB}
}

func newTestMonitor(s Sampler, b Budget) *Monitor {
	return New(Config{Sampler: s, Budget: b, Window: 5, StaleAfter: 30 * time.Second})
}

func TestPressureClassification(t *testing.T) {
	b := Budget{WarnFraction: 0.8, CritFraction: 0.92}
	cases := []struct {
		usedMB int
		want   Pressure
	}{
		{500, PressureNormal},
		{850, PressureWarning},
		{950, PressureCritical},
	}
	for _, c := range cases {
		m := newTestMonitor(&fakeSampler{snaps: []Snapshot{memSnap(c.usedMB, 1000)}}, b)
		m.sampleOnce()
		if got := m.Pressure(); got != c.want {
			t.Fatalf("used=%d: expected %s, got %s", c.usedMB, c.want, got)
		}
	}
}

func TestPressureUsesSmoothedWindow(t *testing.T) {
	// One critical spike averaged with a calm sample lands in warning.
	s := &fakeSampler{snaps: []Snapshot{memSnap(950, 1000), memSnap(650, 1000)}}
	m := newTestMonitor(s, Budget{WarnFraction: 0.8, CritFraction: 0.92})
	m.sampleOnce()
	m.sampleOnce()
	if got := m.Pressure(); got != PressureWarning {
		t.Fatalf("expected warning from smoothed mean, got %s", got)
	}
}

func TestPressureUsesWorstOfMemAndAccel(t *testing.T) {
	snap := memSnap(100, 1000)
	snap.AccelUsedMB, snap.AccelTotalMB = 950, 1000
	m := newTestMonitor(&fakeSampler{snaps: []Snapshot{snap}}, Budget{WarnFraction: 0.8, CritFraction: 0.92})
	m.sampleOnce()
	if got := m.Pressure(); got != PressureCritical {
		t.Fatalf("expected critical from accelerator usage, got %s", got)
	}
}

func TestStaleBeforeFirstSample(t *testing.T) {
	m := newTestMonitor(&fakeSampler{err: errors.New("down")}, Budget{})
	if !m.Stale() {
		t.Fatalf("expected stale before any sample")
	}
	if got := m.Pressure(); got != PressureCritical {
		t.Fatalf("expected critical fail-safe, got %s", got)
	}
	if _, ok := m.Snapshot(); ok {
		t.Fatalf("expected no snapshot")
	}
}

func TestStaleAfterTimeoutForcesCritical(t *testing.T) {
	m := newTestMonitor(&fakeSampler{snaps: []Snapshot{memSnap(100, 1000)}}, Budget{})
	m.sampleOnce()
	if m.Stale() {
		t.Fatalf("expected fresh right after sampling")
	}
	if got := m.Pressure(); got != PressureNormal {
		t.Fatalf("expected normal, got %s", got)
	}

	// Advance the clock past the staleness timeout.
	m.now = func() time.Time { return time.Now().Add(time.Minute) }
	if !m.Stale() {
		t.Fatalf("expected stale after timeout")
	}
	if got := m.Pressure(); got != PressureCritical {
		t.Fatalf("expected critical fail-safe on stale data, got %s", got)
	}

	// A successful sample clears the fail-safe.
	m.sampleOnce()
	if m.Stale() {
		t.Fatalf("expected fresh after recovery sample")
	}
}

func TestSampleErrorKeepsLastSnapshot(t *testing.T) {
	s := &fakeSampler{snaps: []Snapshot{memSnap(200, 1000)}}
	m := newTestMonitor(s, Budget{})
	m.sampleOnce()

	s.mu.Lock()
	s.err = errors.New("sampler down")
	s.mu.Unlock()
	m.sampleOnce()

	snap, ok := m.Snapshot()
	if !ok || snap.MemUsedMB != 200 {
		t.Fatalf("expected last good snapshot retained, got %+v ok=%v", snap, ok)
	}
}

func TestWindowBounded(t *testing.T) {
	s := &fakeSampler{snaps: []Snapshot{memSnap(100, 1000)}}
	m := New(Config{Sampler: s, Window: 3, StaleAfter: time.Minute})
	for i := 0; i < 10; i++ {
		m.sampleOnce()
	}
	m.mu.RLock()
	n := len(m.snaps)
	m.mu.RUnlock()
	if n != 3 {
		t.Fatalf("expected window of 3, got %d", n)
	}
}

func TestStartStop(t *testing.T) {
	s := &fakeSampler{snaps: []Snapshot{memSnap(100, 1000)}}
	m := New(Config{Sampler: s, Interval: 5 * time.Millisecond, StaleAfter: time.Minute})
	m.Start()
	if _, ok := m.Snapshot(); !ok {
		t.Fatalf("expected synchronous first sample on start")
	}
	m.Stop()
	m.Stop() // idempotent
}

func TestBudgetThresholdDefaults(t *testing.T) {
	b := Budget{}
	if b.warnFrac() != defaultWarnFraction || b.critFrac() != defaultCritFraction {
		t.Fatalf("expected default thresholds, got %v/%v", b.warnFrac(), b.critFrac())
	}
	b = Budget{WarnFraction: 0.5, CritFraction: 0.6}
	if b.warnFrac() != 0.5 || b.critFrac() != 0.6 {
		t.Fatalf("expected configured thresholds, got %v/%v", b.warnFrac(), b.critFrac())
	}
}

func TestFractionHelpers(t *testing.T) {
	s := Snapshot{MemUsedMB: 250, MemTotalMB: 1000}
	if got := s.memFraction(); got != 0.25 {
		t.Fatalf("memFraction=%v", got)
	}
	if got := (Snapshot{}).memFraction(); got != 0 {
		t.Fatalf("expected 0 for unknown total, got %v", got)
	}
	s = Snapshot{AccelUsedMB: 500, AccelTotalMB: 1000}
	if got := s.accelFraction(); got != 0.5 {
		t.Fatalf("accelFraction=%v", got)
	}
}
