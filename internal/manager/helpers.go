package manager

import (
	"encoding/json"
	"os"

	"inferd/pkg/types"
)

// estimateMemMB returns the declared resident-memory cost, falling back to
// the artifact size on disk. Returns a conservative minimum of 1MB so budget
// checks are never bypassed by an unknown size.
func estimateMemMB(d types.ModelDescriptor) int {
	if d.EstMemoryMB > 0 {
		return d.EstMemoryMB
	}
	fi, err := os.Stat(d.Path)
	if err != nil {
		return 1
	}
	mb := int(fi.Size() / (1024 * 1024))
	if mb <= 0 {
		mb = 1
	}
	return mb
}

// tokenLineJSON formats a token NDJSON line using json.Marshal for correctness.
func tokenLineJSON(tok string) []byte {
	type tokenMsg struct {
		Token string `json:"token"`
	}
	b, _ := json.Marshal(tokenMsg{Token: tok})
	return append(b, '\n')
}
