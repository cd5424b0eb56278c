package room

import "sync"

// Registry is the authoritative mapping of room name to occupant identities.
// The room set is fixed at construction; occupant sets come and go with
// joins and leaves. Every mutation and the snapshot it reports happen in a
// single critical section, so a broadcast built from a returned snapshot can
// never reflect a partially applied state.
type Registry struct {
	mu        sync.Mutex
	names     []string
	allowed   map[string]struct{}
	occupants map[string][]string
}

// NewRegistry creates a Registry over the fixed enumerated room set. Order
// of names is preserved for listing.
func NewRegistry(names []string) *Registry {
	r := &Registry{
		names:     make([]string, 0, len(names)),
		allowed:   make(map[string]struct{}, len(names)),
		occupants: make(map[string][]string),
	}
	for _, name := range names {
		if _, ok := r.allowed[name]; ok {
			continue
		}
		r.allowed[name] = struct{}{}
		r.names = append(r.names, name)
	}
	return r
}

// Valid reports whether room is part of the enumerated set.
func (r *Registry) Valid(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.allowed[room]
	return ok
}

// Rooms returns the enumerated room names in their configured order.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Join adds identity to the room's occupant set and returns a snapshot of
// the set taken in the same critical section. Joining an unknown room is
// rejected (nil, false) with no state change. Joining a room the identity
// already occupies is idempotent and still reports ok.
func (r *Registry) Join(room, identity string) ([]string, bool) {
	if identity == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.allowed[room]; !ok {
		return nil, false
	}

	members := r.occupants[room]
	present := false
	for _, m := range members {
		if m == identity {
			present = true
			break
		}
	}
	if !present {
		members = append(members, identity)
		r.occupants[room] = members
	}
	return snapshot(members), true
}

// Leave removes identity from the room's occupant set and returns a snapshot
// of the remaining set. If the set becomes empty the room entry is dropped
// entirely; the room name itself stays valid for future joins. Leaving a
// room the identity does not occupy reports (nil, false) with no state change.
func (r *Registry) Leave(room, identity string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.occupants[room]
	if !ok {
		return nil, false
	}

	idx := -1
	for i, m := range members {
		if m == identity {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	members = append(members[:idx], members[idx+1:]...)
	if len(members) == 0 {
		delete(r.occupants, room)
		return []string{}, true
	}
	r.occupants[room] = members
	return snapshot(members), true
}

// Members returns a snapshot of the room's occupant identities in join order.
func (r *Registry) Members(room string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshot(r.occupants[room])
}

// Occupancy returns the number of occupants currently in the room.
func (r *Registry) Occupancy(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.occupants[room])
}

func snapshot(members []string) []string {
	out := make([]string, len(members))
	copy(out, members)
	return out
}
