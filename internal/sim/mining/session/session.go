// Package session ties a hit cache to the lifetime of an actor's session.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"voxelmine.ai/internal/sim/mining"
	"voxelmine.ai/internal/sim/mining/hitcache"
)

type Session struct {
	ID      string
	ActorID string
	Started time.Time

	// Hits is only touched by the goroutine serving this actor.
	Hits *hitcache.Cache
}

func (s *Session) Actor() mining.Actor {
	return mining.Actor{ID: s.ActorID, Hits: s.Hits}
}

// Registry tracks the live session of every actor.
type Registry struct {
	mu      sync.Mutex
	byActor map[string]*Session
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{byActor: map[string]*Session{}, now: time.Now}
}

// Start opens a session for actorID. An existing session is returned as is,
// so a reconnect keeps pending damage.
func (r *Registry) Start(actorID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byActor[actorID]; ok {
		return s
	}
	s := &Session{
		ID:      uuid.NewString(),
		ActorID: actorID,
		Started: r.now(),
		Hits:    hitcache.New(),
	}
	r.byActor[actorID] = s
	return s
}

func (r *Registry) Get(actorID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byActor[actorID]
	return s, ok
}

// End closes the actor's session and returns it. The caller owns what is left
// in its hit cache.
func (r *Registry) End(actorID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byActor[actorID]
	if ok {
		delete(r.byActor, actorID)
	}
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byActor)
}
