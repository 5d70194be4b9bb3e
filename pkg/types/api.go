package types

// InferRequest represents an inference request payload.
type InferRequest struct {
	// Optional model identifier. If empty, the session binding or the server
	// default is used.
	// example: tinyllama-q4
	Model string `json:"model,omitempty" example:"tinyllama-q4"`
	// Optional conversation session identifier. A new session is created on
	// first use; turns within one session are processed in submission order.
	// example: 9f1c2e52-1b0a-4b0e-a0a6-2f6ad7c2a111
	SessionID string `json:"session_id,omitempty" example:"9f1c2e52-1b0a-4b0e-a0a6-2f6ad7c2a111"`
	// Required prompt text to generate a completion for.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// If true, stream results as NDJSON tokens.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Optional stop sequences. Generation stops when any sequence is matched.
	// example: ["\n\n","END"]
	Stop []string `json:"stop,omitempty" example:"[\"\\n\\n\",\"END\"]"`
	// Random seed for reproducibility; 0 or omitted lets the engine choose.
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
	// Repeat penalty applied by some engines.
	// example: 1.1
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" example:"1.1"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of registered models.
	Models []ModelDescriptor `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// LoadedModelStatus summarizes one loaded handle for GET /status.
type LoadedModelStatus struct {
	// ID of the loaded model.
	// example: tinyllama-q4
	ModelID string `json:"model_id" example:"tinyllama-q4"`
	// Lifecycle state of the handle (loading, loaded, unloading).
	// example: loaded
	State string `json:"state" example:"loaded"`
	// Reserved resident memory in MB.
	// example: 1200
	MemoryReservedMB int `json:"memory_reserved_mb" example:"1200"`
	// Reserved accelerator memory in MB.
	// example: 1024
	AccelReservedMB int `json:"accel_reserved_mb,omitempty" example:"1024"`
	// Number of requests currently dispatched to the handle.
	// example: 1
	InFlight int64 `json:"in_flight" example:"1"`
	// Current queue length for this model.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Maximum queued requests before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Last time this handle served a request (unix seconds).
	// example: 1700000000
	LastActiveUnix int64 `json:"last_active_unix" example:"1700000000"`
	// Whether an unload is pending on in-flight drain.
	// example: false
	EvictionPending bool `json:"eviction_pending,omitempty" example:"false"`
}

// BudgetStatus reports the static resource budget for GET /status.
type BudgetStatus struct {
	// Maximum concurrently loaded models (0 = unlimited).
	// example: 2
	MaxModels int `json:"max_models" example:"2"`
	// Maximum aggregate reserved memory in MB (0 = unlimited).
	// example: 8192
	MaxMemoryMB int `json:"max_memory_mb" example:"8192"`
	// Maximum aggregate accelerator memory in MB (0 = unlimited).
	// example: 8192
	MaxAccelMB int `json:"max_accel_mb,omitempty" example:"8192"`
	// Warning pressure threshold as a fraction of total.
	// example: 0.8
	WarnFraction float64 `json:"warn_fraction" example:"0.8"`
	// Critical pressure threshold as a fraction of total.
	// example: 0.92
	CritFraction float64 `json:"crit_fraction" example:"0.92"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Currently loaded handles.
	Loaded []LoadedModelStatus `json:"loaded"`
	// Aggregate reserved memory in MB across loaded handles.
	// example: 2048
	ReservedMB int `json:"reserved_mb" example:"2048"`
	// Aggregate reserved accelerator memory in MB.
	// example: 1024
	AccelReservedMB int `json:"accel_reserved_mb,omitempty" example:"1024"`
	// Static resource budget.
	Budget BudgetStatus `json:"budget"`
	// Current resource pressure (normal, warning, critical).
	// example: normal
	Pressure string `json:"pressure" example:"normal"`
	// Whether the latest resource snapshot is stale (fail-safe active).
	// example: false
	StaleResources bool `json:"stale_resources,omitempty" example:"false"`
	// Number of active conversation sessions.
	// example: 3
	SessionsActive int `json:"sessions_active" example:"3"`
	// Total number of successful model loads.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total number of evictions performed to free memory.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
