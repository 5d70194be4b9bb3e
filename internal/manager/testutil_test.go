package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inferd/internal/monitor"
	"inferd/internal/registry"
	"inferd/pkg/types"
)

// createModelFile creates a small artifact file and returns its path. Memory
// cost in tests comes from EstMemoryMB, not file size.
func createModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return p
}

// newTestRegistry registers one descriptor per (id, estMB) pair backed by a
// real artifact file.
func newTestRegistry(t *testing.T, models map[string]int) *registry.Store {
	t.Helper()
	dir := t.TempDir()
	reg := registry.New()
	for id, mb := range models {
		p := createModelFile(t, dir, id+".gguf")
		d := types.ModelDescriptor{ID: id, Name: id, Path: p, EstMemoryMB: mb}
		if err := reg.Register(d, false); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	return reg
}

// fakeEngine is an in-memory engine for tests. Load calls are counted so
// single-flight behavior is observable.
type fakeEngine struct {
	mu        sync.Mutex
	loadErr   error
	loadDelay time.Duration
	tokens    []string
	genErr    error
	final     FinalResult
	blockGen  chan struct{} // non-nil: Generate blocks until closed

	loads   atomic.Int64
	unloads atomic.Int64
}

func (f *fakeEngine) Load(ctx context.Context, path string, params LoadParams) (EngineHandle, error) {
	f.loads.Add(1)
	f.mu.Lock()
	err, delay := f.loadErr, f.loadDelay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &fakeEngineHandle{eng: f}, nil
}

func (f *fakeEngine) setLoadErr(err error) {
	f.mu.Lock()
	f.loadErr = err
	f.mu.Unlock()
}

type fakeEngineHandle struct{ eng *fakeEngine }

func (h *fakeEngineHandle) Generate(ctx context.Context, prompt string, params GenParams, onToken func(string) error) (FinalResult, error) {
	if h.eng.blockGen != nil {
		select {
		case <-h.eng.blockGen:
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		}
	}
	if h.eng.genErr != nil {
		return FinalResult{}, h.eng.genErr
	}
	for _, tok := range h.eng.tokens {
		select {
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		default:
		}
		if err := onToken(tok); err != nil {
			return FinalResult{}, err
		}
	}
	return h.eng.final, nil
}

func (h *fakeEngineHandle) Unload() error {
	h.eng.unloads.Add(1)
	return nil
}

// fakePressure is a settable PressureSource for tests.
type fakePressure struct {
	mu    sync.Mutex
	p     monitor.Pressure
	stale bool
}

func (f *fakePressure) Pressure() monitor.Pressure {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.p == "" {
		return monitor.PressureNormal
	}
	return f.p
}

func (f *fakePressure) Stale() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale
}

func (f *fakePressure) set(p monitor.Pressure, stale bool) {
	f.mu.Lock()
	f.p, f.stale = p, stale
	f.mu.Unlock()
}

// errWriter writes once, then fails every subsequent write.
type errWriter struct{ wrote int }

func (e *errWriter) Write(p []byte) (int, error) {
	if e.wrote == 0 {
		e.wrote += len(p)
		return len(p), nil
	}
	return 0, errors.New("write fail")
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
