package encounter

import "sync"

// Registry is the authoritative table of live sessions, keyed by session
// id with a member-id index. Lookups are read-locked; session internals
// are still single-threaded under the gameserver handler.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byMember map[string]string // combatant id -> session id
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byMember: make(map[string]string),
	}
}

// Put registers a session and indexes its current members.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	for _, m := range s.Members {
		r.byMember[m.ID] = s.ID
	}
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ByMember returns the session containing the given combatant.
func (r *Registry) ByMember(memberID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byMember[memberID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[id]
	return s, ok
}

// RemoveMember drops one combatant's index entry, for members who leave
// a session that keeps running.
func (r *Registry) RemoveMember(memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byMember, memberID)
}

// Remove discards a session and its member index entries.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	for _, m := range s.Members {
		delete(r.byMember, m.ID)
	}
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
