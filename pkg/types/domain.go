package types

// ModelStatus is the lifecycle state of a registered model.
type ModelStatus string

const (
	StatusRegistered  ModelStatus = "registered"
	StatusDownloading ModelStatus = "downloading"
	StatusReady       ModelStatus = "ready"
	StatusLoading     ModelStatus = "loading"
	StatusLoaded      ModelStatus = "loaded"
	StatusUnloading   ModelStatus = "unloading"
	StatusFailed      ModelStatus = "failed"
)

// ModelDescriptor describes a known model independent of whether it is loaded.
type ModelDescriptor struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"id" example:"tinyllama-q4"`
	// Human-friendly name.
	// example: TinyLlama (Q4)
	Name string `json:"name,omitempty" example:"TinyLlama (Q4)"`
	// Absolute path to the model artifact on disk.
	// example: /var/lib/inferd/models/TinyLlama.Q4_K_M.gguf
	Path string `json:"path" example:"/var/lib/inferd/models/TinyLlama.Q4_K_M.gguf"`
	// Quantization level or variant string.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Optional family (e.g., llama, mistral, phi).
	// example: llama
	Family string `json:"family,omitempty" example:"llama"`
	// Declared parameter count, if known.
	// example: 1100000000
	ParamCount int64 `json:"param_count,omitempty" example:"1100000000"`
	// Estimated resident-memory cost in MB when loaded. Zero means derive
	// from the artifact size on disk.
	// example: 1200
	EstMemoryMB int `json:"est_memory_mb,omitempty" example:"1200"`
	// Estimated accelerator-memory cost in MB when loaded.
	// example: 1024
	EstAccelMB int `json:"est_accel_mb,omitempty" example:"1024"`
	// Current lifecycle status. Mutated only by the lifecycle manager.
	// example: registered
	Status ModelStatus `json:"status,omitempty" example:"registered"`
}
