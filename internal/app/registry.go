package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/internal/core"
	"github.com/huddlechat/huddle/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")

	// ErrIDGeneration means we could not mint a fresh room id. Fatal to the
	// single request, never to the process.
	ErrIDGeneration = errors.New("room id generation failed")
)

const createAttempts = 5

// Registry is the authoritative store of room existence. It tracks identity
// only; membership lives inside each room's actor, so registry operations
// never contend with per-room traffic.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*core.Actor
	router *core.Router
	policy core.ReapPolicy
}

func NewRegistry(router *core.Router, policy core.ReapPolicy) *Registry {
	return &Registry{
		rooms:  make(map[domain.RoomID]*core.Actor),
		router: router,
		policy: policy,
	}
}

// Create registers an empty room and starts its actor. The fresh id is
// retried against live rooms; a collision streak is treated as exhaustion.
func (r *Registry) Create() (domain.RoomID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < createAttempts; i++ {
		id := domain.NewRoomID()
		if _, ok := r.rooms[id]; ok {
			continue
		}
		r.rooms[id] = core.NewActor(domain.NewRoom(id), r.router, r.policy, r.reapEmpty)
		log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room created")
		return id, nil
	}
	return "", ErrIDGeneration
}

// Exists is a pure lookup with no side effect.
func (r *Registry) Exists(id domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[id]
	return ok
}

func (r *Registry) Get(id domain.RoomID) (*core.Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rooms[id]
	return a, ok
}

// Reap removes a room with zero members. Idempotent; a no-op when the room
// is absent or still has members. The emptiness check runs inside the
// actor's loop, so it cannot race a concurrent join.
func (r *Registry) Reap(id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rooms[id]
	if !ok {
		return
	}
	if !a.StopIfEmpty() {
		return
	}
	delete(r.rooms, id)
	log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room reaped")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Shutdown stops every actor. Members are not notified; the process is
// going away and so is all state.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.rooms {
		a.Stop()
		delete(r.rooms, id)
	}
	log.Info().Str("module", "app.registry").Msg("all rooms stopped")
}

func (r *Registry) reapEmpty(id domain.RoomID) {
	r.Reap(id)
}
