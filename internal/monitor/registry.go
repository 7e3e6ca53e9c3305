package monitor

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live sessions by id. One session exists per uploaded
// video; a new upload creates a new session and the old one is discarded by
// the client simply forgetting its id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new session in the analyzing state and returns it.
func (r *Registry) Create() *Session {
	s := NewSession("session-" + uuid.NewString())
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with the given id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}
