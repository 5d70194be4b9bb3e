package manager

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one prompt/completion exchange within a session.
type Turn struct {
	Prompt     string
	Completion string
	ModelID    string
	At         time.Time
}

// session is one conversation: a bound model id (rebindable across hot-swaps)
// and a bounded ordered turn history. The mutex serializes turns within the
// session; different sessions run fully in parallel.
type session struct {
	id      string
	created time.Time

	mu         sync.Mutex
	boundModel string
	turns      []Turn
	lastActive time.Time
}

// appendTurn appends to the bounded history, evicting the oldest turn when
// the cap is reached. Caller holds s.mu.
func (s *session) appendTurn(t Turn, cap int) {
	s.turns = append(s.turns, t)
	if len(s.turns) > cap {
		s.turns = s.turns[len(s.turns)-cap:]
	}
	s.lastActive = t.At
}

// sessionTable tracks active conversation sessions. Session destruction is
// the idle-timeout collaborator's job; the table only guarantees bindings
// never dangle into unloaded handles (a binding is just an id, resolved to a
// handle lazily on each turn).
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]*session
	turnCap  int
}

func newSessionTable(turnCap int) *sessionTable {
	return &sessionTable{sessions: make(map[string]*session), turnCap: turnCap}
}

// resolve returns the session for id, creating it on first use. An empty id
// gets a fresh uuid.
func (t *sessionTable) resolve(id string) *session {
	if id == "" {
		id = uuid.NewString()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok {
		return s
	}
	s := &session{id: id, created: time.Now(), lastActive: time.Now()}
	t.sessions[id] = s
	return s
}

func (t *sessionTable) get(id string) (*session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[id]
	return s, ok
}

// anyBoundTo reports whether any active session is bound to modelID. The
// binding is read without the session lock: it is an admission-bias hint, and
// taking s.mu here would invert the session-then-table lock order used by
// Infer.
func (t *sessionTable) anyBoundTo(modelID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.sessions {
		if s.boundModel == modelID {
			return true
		}
	}
	return false
}

func (t *sessionTable) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[id]; !ok {
		return false
	}
	delete(t.sessions, id)
	return true
}

func (t *sessionTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// RemoveSession drops a session. Called by the external idle-timeout
// collaborator; in-flight turns finish normally since they hold the session
// pointer, not the table entry.
func (m *Manager) RemoveSession(id string) bool { return m.sessions.remove(id) }

// SessionTurns returns a copy of the session's turn history.
func (m *Manager) SessionTurns(id string) ([]Turn, bool) {
	s, ok := m.sessions.get(id)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out, true
}
