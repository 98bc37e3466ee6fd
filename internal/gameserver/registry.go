package gameserver

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finalsentence/server/internal/game/rng"
	"github.com/finalsentence/server/internal/game/typing"
)

// codeLength is the number of join-code characters drawn from rng.CodeAlphabet.
const codeLength = 6

// roomEntry couples a room with its serialization lock and scheduling state.
// Every mutation of the room, and every timer callback that touches it, runs
// with mu held. roundGen is bumped whenever a round starts or finishes so
// stale round and drain callbacks can recognise themselves; graceGens does
// the same per player for the reconnect window.
type roomEntry struct {
	mu   sync.Mutex
	room *typing.Room

	roundGen  int
	graceGens map[string]int

	roundTimer  *Timer
	drainTimer  *Timer
	graceTimers map[string]*Timer
}

// Registry owns the set of active rooms and the uniqueness of their join
// codes. Room lookups and create/remove are serialized by the registry
// mutex; per-room state is serialized by each entry's own lock.
//
// Lock order: a caller may take an entry lock and then the registry lock
// (removal does), never the reverse.
type Registry struct {
	mu    sync.Mutex
	src   rng.Source
	rooms map[string]*roomEntry
	codes map[string]string // join code -> room id
}

// NewRegistry returns an empty registry drawing join codes from src.
//
// Precondition: src must be non-nil.
func NewRegistry(src rng.Source) *Registry {
	return &Registry{
		src:   src,
		rooms: make(map[string]*roomEntry),
		codes: make(map[string]string),
	}
}

// Create builds a room hosted by host and registers it under a fresh id and
// a join code no active room holds. Collisions retry with a new random code;
// at game scale the space of 36^6 codes makes starvation a non-concern.
func (r *Registry) Create(host *typing.Player, kind typing.Kind, maxPlayers int, roundDuration time.Duration) *roomEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code string
	for {
		code = rng.Code(r.src, codeLength)
		if _, taken := r.codes[code]; !taken {
			break
		}
	}

	room := typing.NewRoom(uuid.NewString(), code, kind, host, maxPlayers, roundDuration)
	entry := &roomEntry{
		room:        room,
		graceGens:   make(map[string]int),
		graceTimers: make(map[string]*Timer),
	}
	r.rooms[room.ID] = entry
	r.codes[code] = room.ID
	return entry
}

// FindByID returns the entry for the given room id, or nil.
func (r *Registry) FindByID(id string) *roomEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[id]
}

// FindByCode returns the entry for the given join code, or nil.
func (r *Registry) FindByCode(code string) *roomEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.codes[code]
	if !ok {
		return nil
	}
	return r.rooms[id]
}

// Remove forgets the room and frees its join code. Removing an unknown id is
// a no-op. The room's code is immutable after creation, so reading it here
// without the entry lock is safe.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[id]
	if !ok {
		return
	}
	delete(r.rooms, id)
	delete(r.codes, entry.room.Code)
}

// Len reports how many rooms are active.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// IDs returns the ids of all active rooms, in no particular order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}
