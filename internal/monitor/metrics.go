package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	cpuFraction = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "monitor",
		Name:      "cpu_fraction",
		Help:      "Smoothed CPU utilization fraction from the latest sample",
	})

	memUsedMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "monitor",
		Name:      "mem_used_mb",
		Help:      "Resident memory used in MB from the latest sample",
	})

	accelUsedMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "monitor",
		Name:      "accel_used_mb",
		Help:      "Accelerator memory used in MB from the latest sample",
	})

	diskFreeMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "monitor",
		Name:      "disk_free_mb",
		Help:      "Free disk in MB on the models filesystem",
	})

	pressureLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "monitor",
		Name:      "pressure_level",
		Help:      "Current pressure classification (0=normal, 1=warning, 2=critical)",
	})
)

func init() {
	prometheus.MustRegister(cpuFraction, memUsedMB, accelUsedMB, diskFreeMB, pressureLevel)
}

func observeSnapshot(s Snapshot) {
	cpuFraction.Set(s.CPUFraction)
	memUsedMB.Set(float64(s.MemUsedMB))
	accelUsedMB.Set(float64(s.AccelUsedMB))
	diskFreeMB.Set(float64(s.DiskFreeMB))
}

func observePressure(p Pressure) {
	switch p {
	case PressureCritical:
		pressureLevel.Set(2)
	case PressureWarning:
		pressureLevel.Set(1)
	default:
		pressureLevel.Set(0)
	}
}
