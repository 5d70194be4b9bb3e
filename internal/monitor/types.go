package monitor

import "time"

// Pressure is the qualitative resource-scarcity level derived from sampled
// usage vs. budget thresholds.
type Pressure string

const (
	PressureNormal   Pressure = "normal"
	PressureWarning  Pressure = "warning"
	PressureCritical Pressure = "critical"
)

// Budget is the static resource budget shared across all loaded models.
type Budget struct {
	// MaxModels caps concurrently loaded models. 0 = unlimited.
	MaxModels int
	// MaxMemoryMB caps aggregate reserved resident memory. 0 = unlimited.
	MaxMemoryMB int
	// MaxAccelMB caps aggregate reserved accelerator memory. 0 = unlimited.
	MaxAccelMB int
	// MemoryMarginMB is kept free on top of reservations when admitting.
	MemoryMarginMB int
	// WarnFraction and CritFraction classify smoothed usage into pressure
	// levels. Zero values fall back to package defaults.
	WarnFraction float64
	CritFraction float64
}

const (
	defaultWarnFraction = 0.80
	defaultCritFraction = 0.92
)

// warnFrac returns the effective warning threshold.
func (b Budget) warnFrac() float64 {
	if b.WarnFraction > 0 {
		return b.WarnFraction
	}
	return defaultWarnFraction
}

// critFrac returns the effective critical threshold.
func (b Budget) critFrac() float64 {
	if b.CritFraction > 0 {
		return b.CritFraction
	}
	return defaultCritFraction
}

// Snapshot is a point-in-time resource measurement. Immutable once produced.
type Snapshot struct {
	TakenAt      time.Time
	CPUFraction  float64
	MemUsedMB    int
	MemTotalMB   int
	AccelUsedMB  int
	AccelTotalMB int
	DiskFreeMB   int
}

// memFraction returns used/total resident memory, 0 when total is unknown.
func (s Snapshot) memFraction() float64 {
	if s.MemTotalMB <= 0 {
		return 0
	}
	return float64(s.MemUsedMB) / float64(s.MemTotalMB)
}

// accelFraction returns used/total accelerator memory, 0 when total is unknown.
func (s Snapshot) accelFraction() float64 {
	if s.AccelTotalMB <= 0 {
		return 0
	}
	return float64(s.AccelUsedMB) / float64(s.AccelTotalMB)
}
