package manager

import "context"

// Engine abstracts the native inference runtime. Concrete implementations
// (e.g., llama.cpp) are selected at build time; the lifecycle contract is the
// same for all: Load hands exclusive ownership of the instance to the caller,
// and Unload on the returned handle always completes.
type Engine interface {
	// Load opens the model artifact at path and returns a handle to the live
	// instance. The context bounds the load itself.
	Load(ctx context.Context, path string, params LoadParams) (EngineHandle, error)
}

// EngineHandle represents one loaded model instance inside the engine.
type EngineHandle interface {
	// Generate streams tokens for the given prompt. The onToken callback is
	// invoked per token; implementations must return when the context is
	// canceled.
	Generate(ctx context.Context, prompt string, params GenParams, onToken func(string) error) (FinalResult, error)
	// Unload releases the instance. It must be called at most once.
	Unload() error
}

// LoadParams captures engine settings fixed at load time.
type LoadParams struct {
	CtxSize int
	Threads int
}

// GenParams captures generation parameters for one request.
type GenParams struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
