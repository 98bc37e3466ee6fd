package gameserver

import "sync"

// Hub fans events out to every channel registered for a room. Channels are
// closed exactly once, always under the hub mutex, and only sent to while
// they remain in the room's set; that is what makes the drop-on-full and
// close paths safe against send-after-close.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[chan Event]bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[chan Event]bool)}
}

// Register adds ch to the room's broadcast set.
//
// Precondition: ch must be buffered; an unbuffered channel would drop every
// event whose reader is not already waiting.
func (h *Hub) Register(roomID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[chan Event]bool)
		h.rooms[roomID] = set
	}
	set[ch] = true
}

// Unregister removes ch from the room's set and closes it. Unregistering a
// channel the hub no longer holds is a no-op, so connection teardown and
// CloseRoom can race freely.
func (h *Hub) Unregister(roomID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[roomID]
	if !ok || !set[ch] {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast enqueues ev on every channel in the room's set. Delivery is
// best-effort: a channel whose buffer is full is dropped from the set and
// closed rather than blocking the caller.
func (h *Hub) Broadcast(roomID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.rooms[roomID]
	for ch := range set {
		select {
		case ch <- ev:
		default:
			delete(set, ch)
			close(ch)
		}
	}
	if len(set) == 0 {
		delete(h.rooms, roomID)
	}
}

// Send delivers ev to a single registered channel, reporting whether the
// channel was still registered. Slow channels are dropped as in Broadcast.
func (h *Hub) Send(roomID string, ch chan Event, ev Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[roomID]
	if !ok || !set[ch] {
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		delete(set, ch)
		close(ch)
		return false
	}
}

// CloseRoom closes every channel registered for the room and forgets the
// set. Write pumps observe the close and shut their connections.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.rooms[roomID] {
		close(ch)
	}
	delete(h.rooms, roomID)
}

// Subscribers reports how many channels are registered for the room.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}
