package registry

import (
	"fmt"
	"sync"

	"github.com/FiveEightyEight/scripturequest/game"
	"github.com/FiveEightyEight/scripturequest/models"
)

// Registry indexes live sessions and squads by id. The map lock only guards
// lookups; each session and squad serializes its own mutations.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
	squads   map[string]*game.Squad
}

func New() *Registry {
	return &Registry{
		sessions: make(map[string]*game.Session),
		squads:   make(map[string]*game.Squad),
	}
}

// AddSession panics on a duplicate id: ids are never reused.
func (r *Registry) AddSession(s *game.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID()]; exists {
		panic(fmt.Sprintf("registry: session %s registered twice", s.ID()))
	}
	r.sessions[s.ID()] = s
}

func (r *Registry) Session(id string) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "session", ID: id}
	}
	return s, nil
}

func (r *Registry) RemoveSession(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Sessions returns a snapshot; callers lock each session individually.
func (r *Registry) Sessions() []*game.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*game.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) AddSquad(sq *game.Squad) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.squads[sq.ID()]; exists {
		panic(fmt.Sprintf("registry: squad %s registered twice", sq.ID()))
	}
	r.squads[sq.ID()] = sq
}

func (r *Registry) Squad(id string) (*game.Squad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sq, ok := r.squads[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "squad", ID: id}
	}
	return sq, nil
}

func (r *Registry) RemoveSquad(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.squads[id]
	delete(r.squads, id)
	return ok
}

func (r *Registry) Squads() []*game.Squad {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*game.Squad, 0, len(r.squads))
	for _, sq := range r.squads {
		out = append(out, sq)
	}
	return out
}

func (r *Registry) Counts() (sessions, squads int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), len(r.squads)
}
