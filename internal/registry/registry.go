// Package registry is the durable record of known model descriptors,
// independent of whether each model is currently loaded. Lookups are
// read-mostly and lock-free; lifecycle status transitions go through
// SetStatus and are owned by the lifecycle manager.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"inferd/pkg/types"
)

var (
	// ErrDuplicateID is returned when registering an id that already exists
	// without force.
	ErrDuplicateID = errors.New("duplicate model id")
	// ErrModelLoaded is returned when force-replacing a descriptor that has a
	// loaded handle.
	ErrModelLoaded = errors.New("model has a loaded handle")
)

// Store maps model id to descriptor. Descriptors are stored by value so a
// returned copy can never mutate the registry.
type Store struct {
	models *xsync.MapOf[string, types.ModelDescriptor]

	// isLoaded is installed by the lifecycle manager so force-replacement can
	// refuse to clobber a descriptor backing a live handle.
	isLoaded func(id string) bool
}

// New returns an empty store.
func New() *Store {
	return &Store{models: xsync.NewMapOf[string, types.ModelDescriptor]()}
}

// SetLoadedCheck installs the loadedness predicate. Nil means "never loaded".
func (s *Store) SetLoadedCheck(fn func(id string) bool) { s.isLoaded = fn }

// Register adds a descriptor. A duplicate id is rejected unless force is set,
// in which case the prior descriptor is replaced only if it has no loaded
// handle. The artifact location must exist and be readable.
func (s *Store) Register(d types.ModelDescriptor, force bool) error {
	if d.ID == "" {
		return fmt.Errorf("register: empty model id")
	}
	if err := checkArtifact(d.Path); err != nil {
		return fmt.Errorf("register %s: %w", d.ID, err)
	}
	if d.Status == "" {
		d.Status = types.StatusRegistered
	}
	if _, exists := s.models.Load(d.ID); exists {
		if !force {
			return fmt.Errorf("register %s: %w", d.ID, ErrDuplicateID)
		}
		if s.isLoaded != nil && s.isLoaded(d.ID) {
			return fmt.Errorf("register %s: %w", d.ID, ErrModelLoaded)
		}
	}
	s.models.Store(d.ID, d)
	return nil
}

// Get returns a copy of the descriptor for id.
func (s *Store) Get(id string) (types.ModelDescriptor, bool) {
	return s.models.Load(id)
}

// List returns all descriptors sorted by id.
func (s *Store) List() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, 0, s.models.Size())
	s.models.Range(func(_ string, d types.ModelDescriptor) bool {
		out = append(out, d)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetStatus transitions the lifecycle status of id. Returns false when the
// id is unknown.
func (s *Store) SetStatus(id string, st types.ModelStatus) bool {
	d, ok := s.models.Load(id)
	if !ok {
		return false
	}
	d.Status = st
	s.models.Store(id, d)
	return true
}

// Len reports the number of registered descriptors.
func (s *Store) Len() int { return s.models.Size() }

func checkArtifact(path string) error {
	if path == "" {
		return fmt.Errorf("empty artifact path")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("artifact not readable: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("artifact is a directory: %s", path)
	}
	return nil
}
