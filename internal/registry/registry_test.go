package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"inferd/pkg/types"
)

func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return p
}

func TestRegisterAndGet(t *testing.T) {
	dir := t.TempDir()
	s := New()
	p := writeArtifact(t, dir, "a.gguf")

	if err := s.Register(types.ModelDescriptor{ID: "a", Path: p}, false); err != nil {
		t.Fatalf("register: %v", err)
	}
	d, ok := s.Get("a")
	if !ok {
		t.Fatalf("expected descriptor")
	}
	if d.Status != types.StatusRegistered {
		t.Fatalf("expected default registered status, got %s", d.Status)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 descriptor, got %d", s.Len())
	}
}

func TestRegisterValidation(t *testing.T) {
	dir := t.TempDir()
	s := New()

	if err := s.Register(types.ModelDescriptor{Path: writeArtifact(t, dir, "x.gguf")}, false); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if err := s.Register(types.ModelDescriptor{ID: "a", Path: ""}, false); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if err := s.Register(types.ModelDescriptor{ID: "a", Path: filepath.Join(dir, "missing.gguf")}, false); err == nil {
		t.Fatalf("expected error for missing artifact")
	}
	if err := s.Register(types.ModelDescriptor{ID: "a", Path: dir}, false); err == nil {
		t.Fatalf("expected error for directory artifact")
	}
}

func TestRegisterDuplicateAndForce(t *testing.T) {
	dir := t.TempDir()
	s := New()
	p := writeArtifact(t, dir, "a.gguf")

	if err := s.Register(types.ModelDescriptor{ID: "a", Path: p}, false); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := s.Register(types.ModelDescriptor{ID: "a", Path: p}, false)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if err := s.Register(types.ModelDescriptor{ID: "a", Path: p, Name: "renamed"}, true); err != nil {
		t.Fatalf("force replace: %v", err)
	}
	d, _ := s.Get("a")
	if d.Name != "renamed" {
		t.Fatalf("expected replaced descriptor, got %+v", d)
	}
}

func TestRegisterRefusesReplacingLoaded(t *testing.T) {
	dir := t.TempDir()
	s := New()
	p := writeArtifact(t, dir, "a.gguf")
	if err := s.Register(types.ModelDescriptor{ID: "a", Path: p}, false); err != nil {
		t.Fatalf("register: %v", err)
	}

	loaded := true
	s.SetLoadedCheck(func(id string) bool { return loaded && id == "a" })

	err := s.Register(types.ModelDescriptor{ID: "a", Path: p}, true)
	if !errors.Is(err, ErrModelLoaded) {
		t.Fatalf("expected loaded-handle refusal, got %v", err)
	}

	loaded = false
	if err := s.Register(types.ModelDescriptor{ID: "a", Path: p}, true); err != nil {
		t.Fatalf("replace after unload: %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	dir := t.TempDir()
	s := New()
	p := writeArtifact(t, dir, "a.gguf")
	if err := s.Register(types.ModelDescriptor{ID: "a", Path: p}, false); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !s.SetStatus("a", types.StatusLoaded) {
		t.Fatalf("expected status transition")
	}
	d, _ := s.Get("a")
	if d.Status != types.StatusLoaded {
		t.Fatalf("expected loaded, got %s", d.Status)
	}
	if s.SetStatus("missing", types.StatusLoaded) {
		t.Fatalf("expected false for unknown id")
	}
}

func TestListSortedAndCopied(t *testing.T) {
	dir := t.TempDir()
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		p := writeArtifact(t, dir, id+".gguf")
		if err := s.Register(types.ModelDescriptor{ID: id, Path: p}, false); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	out := s.List()
	if len(out) != 3 || out[0].ID != "a" || out[1].ID != "b" || out[2].ID != "c" {
		t.Fatalf("expected sorted list, got %+v", out)
	}
	// Mutating the returned slice must not touch the store.
	out[0].Name = "mutated"
	d, _ := s.Get("a")
	if d.Name == "mutated" {
		t.Fatalf("store mutated through returned slice")
	}
}
