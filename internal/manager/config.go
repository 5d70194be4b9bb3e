package manager

import (
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/monitor"
	"inferd/internal/registry"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxParallel   = 1
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 10 * time.Second
	defaultLoadTimeout   = 2 * time.Minute
	defaultTurnCap       = 32
)

// PressureSource exposes the monitor readings the manager consults before
// admitting loads. Implementations must be non-blocking.
type PressureSource interface {
	Pressure() monitor.Pressure
	Stale() bool
}

// staticPressure is the fallback when no monitor is wired (tests, tooling).
type staticPressure struct{ p monitor.Pressure }

func (s staticPressure) Pressure() monitor.Pressure { return s.p }
func (s staticPressure) Stale() bool                { return false }

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     *registry.Store
	Pressure     PressureSource
	Budget       monitor.Budget
	Engine       Engine
	Publisher    EventPublisher
	Logger       zerolog.Logger
	DefaultModel string

	MaxQueueDepth int
	MaxParallel   int
	MaxWait       time.Duration
	DrainTimeout  time.Duration
	LoadTimeout   time.Duration
	TurnCap       int

	// Engine tunables passed through at load time
	EngineCtx     int
	EngineThreads int
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		registry:      cfg.Registry,
		pressure:      cfg.Pressure,
		budget:        cfg.Budget,
		engine:        cfg.Engine,
		publisher:     cfg.Publisher,
		log:           cfg.Logger,
		defaultModel:  cfg.DefaultModel,
		handles:       make(map[string]*Handle),
		loading:       make(map[string]*loadOp),
		maxQueueDepth: cfg.MaxQueueDepth,
		maxParallel:   cfg.MaxParallel,
		maxWait:       cfg.MaxWait,
		drainTimeout:  cfg.DrainTimeout,
		loadTimeout:   cfg.LoadTimeout,
		engineCtx:     cfg.EngineCtx,
		engineThreads: cfg.EngineThreads,
		startTime:     time.Now(),
	}
	if m.registry == nil {
		m.registry = registry.New()
	}
	if m.pressure == nil {
		m.pressure = staticPressure{p: monitor.PressureNormal}
	}
	if m.engine == nil {
		m.engine = NewLlamaEngine(cfg.EngineCtx, cfg.EngineThreads)
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.maxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	}
	if m.maxParallel <= 0 {
		m.maxParallel = defaultMaxParallel
	}
	if m.maxWait <= 0 {
		m.maxWait = defaultMaxWait
	}
	if m.drainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	}
	if m.loadTimeout <= 0 {
		m.loadTimeout = defaultLoadTimeout
	}
	turnCap := cfg.TurnCap
	if turnCap <= 0 {
		turnCap = defaultTurnCap
	}
	m.sessions = newSessionTable(turnCap)
	// One handle per loaded id at any time; the registry refuses to replace a
	// descriptor backing a live handle.
	m.registry.SetLoadedCheck(m.IsLoaded)
	return m
}
