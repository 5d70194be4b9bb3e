// Package monitor samples system resource usage on a fixed interval and
// classifies pressure against a static budget. The monitor is the single
// writer of its state; readers get non-blocking snapshot and pressure views.
// If sampling fails long enough for the last snapshot to go stale, pressure
// is forced to critical as a fail-safe: rejecting loads is preferred over
// exhausting memory on bad data.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultInterval   = 5 * time.Second
	defaultWindow     = 5
	defaultStaleAfter = 30 * time.Second
)

// Config encapsulates all tunables for Monitor construction.
type Config struct {
	Sampler    Sampler
	Budget     Budget
	Interval   time.Duration
	Window     int
	StaleAfter time.Duration
	Logger     zerolog.Logger
}

// Monitor owns the background sampling loop.
type Monitor struct {
	mu      sync.RWMutex
	sampler Sampler
	budget  Budget
	log     zerolog.Logger

	interval   time.Duration
	window     int
	staleAfter time.Duration

	snaps    []Snapshot // ring, newest last, len <= window
	lastOK   time.Time  // time of last successful sample
	sampled  bool       // at least one successful sample
	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}

	now func() time.Time // test hook
}

// New constructs a Monitor. Call Start to begin sampling.
func New(cfg Config) *Monitor {
	m := &Monitor{
		sampler:    cfg.Sampler,
		budget:     cfg.Budget,
		log:        cfg.Logger,
		interval:   cfg.Interval,
		window:     cfg.Window,
		staleAfter: cfg.StaleAfter,
		done:       make(chan struct{}),
		now:        time.Now,
	}
	if m.interval <= 0 {
		m.interval = defaultInterval
	}
	if m.window <= 0 {
		m.window = defaultWindow
	}
	if m.staleAfter <= 0 {
		m.staleAfter = defaultStaleAfter
	}
	return m
}

// Budget returns the static budget the monitor classifies against.
func (m *Monitor) Budget() Budget { return m.budget }

// Start launches the sampling loop. It samples once synchronously so callers
// have data immediately after Start returns.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.sampleOnce()
	go m.loop(ctx)
}

// Stop cancels the loop and waits for the in-flight sample to finish.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
			<-m.done
		} else {
			close(m.done)
		}
	})
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sampleOnce()
		}
	}
}

func (m *Monitor) sampleOnce() {
	snap, err := m.sampler.Sample()
	if err != nil {
		// Hold the last-known snapshot; staleness handles prolonged failure.
		m.log.Warn().Err(err).Msg("resource sample failed")
		return
	}
	m.mu.Lock()
	m.snaps = append(m.snaps, snap)
	if len(m.snaps) > m.window {
		m.snaps = m.snaps[len(m.snaps)-m.window:]
	}
	m.lastOK = m.now()
	m.sampled = true
	m.mu.Unlock()
	observeSnapshot(snap)
	observePressure(m.Pressure())
}

// Snapshot returns the latest snapshot and whether any sample has succeeded.
func (m *Monitor) Snapshot() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.snaps) == 0 {
		return Snapshot{}, false
	}
	return m.snaps[len(m.snaps)-1], true
}

// Stale reports whether the last successful sample is older than the
// staleness timeout (or no sample ever succeeded).
func (m *Monitor) Stale() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.staleLocked()
}

func (m *Monitor) staleLocked() bool {
	if !m.sampled {
		return true
	}
	return m.now().Sub(m.lastOK) > m.staleAfter
}

// Pressure classifies smoothed usage against the budget thresholds. Stale
// data forces critical.
func (m *Monitor) Pressure() Pressure {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.staleLocked() {
		return PressureCritical
	}
	var memSum, accelSum float64
	for _, s := range m.snaps {
		memSum += s.memFraction()
		accelSum += s.accelFraction()
	}
	n := float64(len(m.snaps))
	frac := memSum / n
	if a := accelSum / n; a > frac {
		frac = a
	}
	switch {
	case frac >= m.budget.critFrac():
		return PressureCritical
	case frac >= m.budget.warnFrac():
		return PressureWarning
	default:
		return PressureNormal
	}
}
