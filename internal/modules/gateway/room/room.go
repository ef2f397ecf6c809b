// Package room maps identity keys to the live connections authenticated as
// that identity and fans events out to them.
package room

import (
	"sync"
)

// Member is one live connection that can sit in a room.
type Member interface {
	ID() string
	Emit(event string, payload any) error
	Disconnect()
}

type room struct {
	mu      sync.RWMutex
	members map[string]Member
	// detached rooms are no longer reachable from the registry; joins must retry.
	detached bool
}

// Registry is safe for concurrent use. The registry lock only guards the
// key -> room map; membership is guarded per room.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

func (r *Registry) lookup(key string) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[key]
}

func (r *Registry) getOrCreate(key string) *room {
	if rm := r.lookup(key); rm != nil {
		return rm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[key]
	if !ok {
		rm = &room{members: make(map[string]Member)}
		r.rooms[key] = rm
	}
	return rm
}

// Join adds m to the room for key, creating the room if needed.
func (r *Registry) Join(key string, m Member) {
	for {
		rm := r.getOrCreate(key)
		rm.mu.Lock()
		if rm.detached {
			rm.mu.Unlock()
			continue
		}
		rm.members[m.ID()] = m
		rm.mu.Unlock()
		return
	}
}

// Leave removes m from the room for key and drops the room once empty.
// It is a no-op when the room or the member is unknown.
func (r *Registry) Leave(key string, m Member) {
	rm := r.lookup(key)
	if rm == nil {
		return
	}

	rm.mu.Lock()
	if _, ok := rm.members[m.ID()]; !ok {
		rm.mu.Unlock()
		return
	}
	delete(rm.members, m.ID())
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		r.dropIfEmpty(key, rm)
	}
}

func (r *Registry) dropIfEmpty(key string, rm *room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[key] != rm {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if len(rm.members) > 0 {
		return
	}
	rm.detached = true
	delete(r.rooms, key)
}

func (rm *room) snapshot() []Member {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]Member, 0, len(rm.members))
	for _, m := range rm.members {
		out = append(out, m)
	}
	return out
}

// Notify emits event to every member currently in the room for key and
// returns how many emits succeeded. Unknown or empty rooms are a no-op.
func (r *Registry) Notify(key, event string, payload any) int {
	rm := r.lookup(key)
	if rm == nil {
		return 0
	}
	delivered := 0
	for _, m := range rm.snapshot() {
		if err := m.Emit(event, payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// ForceDisconnect removes the room for key and disconnects all of its members.
// It returns the number of members disconnected.
func (r *Registry) ForceDisconnect(key string) int {
	r.mu.Lock()
	rm, ok := r.rooms[key]
	if !ok {
		r.mu.Unlock()
		return 0
	}
	delete(r.rooms, key)
	rm.mu.Lock()
	rm.detached = true
	members := make([]Member, 0, len(rm.members))
	for _, m := range rm.members {
		members = append(members, m)
	}
	rm.members = make(map[string]Member)
	rm.mu.Unlock()
	r.mu.Unlock()

	for _, m := range members {
		m.Disconnect()
	}
	return len(members)
}

// Members returns the ids of the members currently in the room for key.
func (r *Registry) Members(key string) []string {
	rm := r.lookup(key)
	if rm == nil {
		return nil
	}
	members := rm.snapshot()
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID())
	}
	return ids
}

// Has reports whether m is currently in the room for key.
func (r *Registry) Has(key string, m Member) bool {
	rm := r.lookup(key)
	if rm == nil {
		return false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.members[m.ID()]
	return ok
}

// Rooms returns the number of non-empty rooms.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Count returns the number of members across all rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	total := 0
	for _, rm := range rooms {
		rm.mu.RLock()
		total += len(rm.members)
		rm.mu.RUnlock()
	}
	return total
}
