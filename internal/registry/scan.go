package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inferd/pkg/types"
)

// ScanDir scans a directory for *.gguf files and registers a descriptor for
// each. ID is the full filename (including extension); Path is the absolute
// file path; the estimated memory cost is derived from the artifact size.
// Already-registered ids are left untouched.
func (s *Store) ScanDir(dir string) (int, error) {
	base, err := expandHome(dir)
	if err != nil {
		return 0, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return 0, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return 0, fmt.Errorf("read dir: %w", err)
	}
	added := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		p := filepath.Join(abs, name)
		d := types.ModelDescriptor{
			ID:          name,
			Name:        name,
			Path:        p,
			EstMemoryMB: fileSizeMB(p),
			Status:      types.StatusRegistered,
		}
		if err := s.Register(d, false); err != nil {
			// keep existing registrations intact
			continue
		}
		added++
	}
	return added, nil
}

// fileSizeMB returns the artifact size in MB, minimum 1 so budget checks are
// never bypassed by an unknown size.
func fileSizeMB(path string) int {
	fi, err := os.Stat(path)
	if err != nil {
		return 1
	}
	mb := int(fi.Size() / (1024 * 1024))
	if mb <= 0 {
		mb = 1
	}
	return mb
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
