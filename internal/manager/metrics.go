package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadedModels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "core",
		Name:      "loaded_models",
		Help:      "Number of currently loaded model handles",
	})

	reservedMemMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "core",
		Name:      "reserved_mem_mb",
		Help:      "Aggregate reserved resident memory in MB across loaded handles",
	})

	reservedAccelMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "inferd",
		Subsystem: "core",
		Name:      "reserved_accel_mb",
		Help:      "Aggregate reserved accelerator memory in MB across loaded handles",
	})

	loadsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "core",
		Name:      "loads_total",
		Help:      "Total number of successful model loads",
	})

	evictionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "core",
		Name:      "evictions_total",
		Help:      "Total number of completed unloads/evictions",
	})

	rejectsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inferd",
		Subsystem: "core",
		Name:      "load_rejects_total",
		Help:      "Total load requests rejected by admission",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(loadedModels, reservedMemMB, reservedAccelMB, loadsCounter, evictionsCounter, rejectsCounter)
}

func updateResourceGauges(loaded, memMB, accelMB int) {
	loadedModels.Set(float64(loaded))
	reservedMemMB.Set(float64(memMB))
	reservedAccelMB.Set(float64(accelMB))
}

func recordLoad() { loadsCounter.Inc() }

func recordEviction() { evictionsCounter.Inc() }

func recordReject(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	rejectsCounter.WithLabelValues(reason).Inc()
}
