//go:build !llama

package manager

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in engine_llama.go (tagged 'llama').

import "context"

type llamaEngine struct {
	ctxSize int
	threads int
}

// NewLlamaEngine returns a stub that satisfies Engine but refuses to load
// without the 'llama' build tag. This avoids any mocked behavior in
// production binaries built without CGO support.
func NewLlamaEngine(ctxSize, threads int) Engine {
	return &llamaEngine{ctxSize: ctxSize, threads: threads}
}

func (e *llamaEngine) Load(ctx context.Context, path string, params LoadParams) (EngineHandle, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
