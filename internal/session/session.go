// Package session tracks the client sessions that own workspaces and
// retrieval indexes.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultID is used when a client supplies no session id.
const DefaultID = "default"

// Session is one client session.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Registry keeps sessions in memory. Sessions are created lazily the first
// time an id is seen, since clients mint their own ids.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create mints a new session with a generated id.
func (r *Registry) Create() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s := &Session{ID: uuid.NewString(), CreatedAt: now, LastSeen: now}
	r.sessions[s.ID] = s
	return s
}

// Touch records activity for a session, registering it if unseen. An empty id
// maps to DefaultID. Returns the touched session.
func (r *Registry) Touch(id string) *Session {
	if id == "" {
		id = DefaultID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s, ok := r.sessions[id]
	if !ok {
		s = &Session{ID: id, CreatedAt: now}
		r.sessions[id] = s
	}
	s.LastSeen = now
	out := *s
	return &out
}

// Get returns a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	out := *s
	return &out, true
}

// List returns all sessions ordered by creation time.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Delete removes a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
