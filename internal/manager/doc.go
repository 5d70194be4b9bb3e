// Package manager owns the resource-aware model lifecycle core: which models
// are resident, admission and eviction under a shared budget, and the
// coordination of concurrent inference requests against loaded handles. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (handleState, Handle, views).
//   - errors.go: error taxonomy and Is* helpers.
//   - policy.go: pure admission/eviction decision function.
//   - lifecycle.go: RequestLoad with per-id single-flight and victim eviction.
//   - unload.go: RequestUnload, drain waits, and unload completion.
//   - queue.go: per-model bounded queue admission and scoped release.
//   - coordinator.go: Infer entry point, streaming, session turn append.
//   - sessions.go: conversation sessions with bounded turn history.
//   - status.go: Status reporting.
//   - events.go, eventpub_memory.go, eventpub_zerolog.go: lifecycle events.
//   - metrics.go: prometheus instrumentation for the core.
//
// Engine runtimes:
//
//   - In-process llama (standard): go-llama.cpp, enabled with `-tags=llama`
//     (engine_llama.go). A no-CGO stub compiles otherwise (engine_llama_stub.go).
//
// External packages should treat this package as the orchestration layer and
// use public methods only (NewWithConfig, Infer, RequestLoad, RequestUnload,
// Status, ListModels). Internal types are subject to change.
package manager
