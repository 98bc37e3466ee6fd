package gameserver

import (
	"strings"

	"go.uber.org/zap"

	"github.com/finalsentence/server/internal/game/typing"
)

// Join adds a player to the room and announces them. Joining a room you are
// already in behaves as a reconnect: the existing seat is restored instead of
// a second one being created.
//
// Postcondition: On success the player is Connected, any pending grace
// eviction for them is cancelled, and a player_joined event carrying their
// snapshot has been broadcast.
func (h *RoomHandler) Join(roomID, playerID, name, avatar string) (RoomStateData, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RoomStateData{}, ErrNameRequired
	}

	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return RoomStateData{}, ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if existing := entry.room.FindPlayer(playerID); existing != nil {
		h.restoreLocked(entry, existing)
		h.hub.Broadcast(roomID, Event{Type: EventPlayerJoined, Data: *existing})
		h.persistRoomLocked(entry.room)
		return snapshotLocked(entry.room), nil
	}

	p := typing.NewPlayer(playerID, name, avatar)
	if err := entry.room.AddPlayer(p); err != nil {
		return RoomStateData{}, err
	}

	h.hub.Broadcast(roomID, Event{Type: EventPlayerJoined, Data: *p})
	h.persistRoomLocked(entry.room)
	h.log.Info("player joined",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Int("players", len(entry.room.Players)))
	return snapshotLocked(entry.room), nil
}

// Reconnect restores an existing member's seat inside the grace window and
// re-announces them.
func (h *RoomHandler) Reconnect(roomID, playerID string) (RoomStateData, error) {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return RoomStateData{}, ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	p := entry.room.FindPlayer(playerID)
	if p == nil {
		return RoomStateData{}, ErrPlayerNotFound
	}

	h.restoreLocked(entry, p)
	h.hub.Broadcast(roomID, Event{Type: EventPlayerJoined, Data: *p})
	h.persistRoomLocked(entry.room)
	h.log.Info("player reconnected",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID))
	return snapshotLocked(entry.room), nil
}

// restoreLocked marks the player connected and invalidates any pending grace
// eviction. Caller holds the entry lock.
func (h *RoomHandler) restoreLocked(entry *roomEntry, p *typing.Player) {
	p.Connected = true
	entry.graceGens[p.ID]++
	if t := entry.graceTimers[p.ID]; t != nil {
		t.Stop()
		delete(entry.graceTimers, p.ID)
	}
}

// Disconnect marks the player disconnected and arms their grace eviction
// timer. The player keeps their seat and round state; nothing is broadcast.
// Unknown rooms and players are ignored.
func (h *RoomHandler) Disconnect(roomID, playerID string) {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	p := entry.room.FindPlayer(playerID)
	if p == nil {
		return
	}

	p.Connected = false
	entry.graceGens[playerID]++
	gen := entry.graceGens[playerID]
	if old := entry.graceTimers[playerID]; old != nil {
		old.Stop()
	}
	entry.graceTimers[playerID] = NewTimer(h.cfg.GraceWindow, func() {
		h.onGraceExpiry(roomID, playerID, gen)
	})

	h.persistRoomLocked(entry.room)
	h.log.Info("player disconnected, grace window armed",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Duration("grace", h.cfg.GraceWindow))
}

// Leave removes the player from the room immediately.
//
// Postcondition: player_left (and host_changed when the host departed) has
// been broadcast, or the room itself was removed if the last seat emptied.
// A departure never ends a running round; the round timer settles it.
func (h *RoomHandler) Leave(roomID, playerID string) error {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	removed, hostChanged := entry.room.RemovePlayer(playerID)
	if removed == nil {
		return ErrPlayerNotFound
	}

	entry.graceGens[playerID]++
	if t := entry.graceTimers[playerID]; t != nil {
		t.Stop()
		delete(entry.graceTimers, playerID)
	}

	h.log.Info("player left",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID))
	h.departureLocked(entry, playerID, hostChanged)
	return nil
}

// onGraceExpiry evicts a player whose grace window lapsed. The generation
// token makes the callback a no-op when the player reconnected, left, or
// disconnected again after this timer was armed.
func (h *RoomHandler) onGraceExpiry(roomID, playerID string, gen int) {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.graceGens[playerID] != gen {
		return
	}
	delete(entry.graceTimers, playerID)
	delete(entry.graceGens, playerID)

	removed, hostChanged := entry.room.RemovePlayer(playerID)
	if removed == nil {
		return
	}

	h.log.Info("player evicted after grace window",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID))
	h.departureLocked(entry, playerID, hostChanged)
}

// departureLocked finishes a removal: announces it, or tears the room down
// when the last seat emptied. Caller holds the entry lock.
func (h *RoomHandler) departureLocked(entry *roomEntry, playerID string, hostChanged bool) {
	if len(entry.room.Players) == 0 {
		h.removeRoomLocked(entry)
		return
	}

	h.hub.Broadcast(entry.room.ID, Event{Type: EventPlayerLeft, Data: PlayerLeftData{PlayerID: playerID}})
	if hostChanged {
		h.hub.Broadcast(entry.room.ID, Event{Type: EventHostChanged, Data: HostChangedData{HostID: entry.room.HostID}})
	}
	h.persistRoomLocked(entry.room)
}

// removeRoomLocked unregisters the room, invalidates every outstanding timer,
// closes all subscriber channels, and deletes the stored snapshot. Caller
// holds the entry lock; the entry lock is always taken before the registry
// lock, so the Remove call here cannot deadlock.
func (h *RoomHandler) removeRoomLocked(entry *roomEntry) {
	entry.roundGen++
	if entry.roundTimer != nil {
		entry.roundTimer.Stop()
		entry.roundTimer = nil
	}
	if entry.drainTimer != nil {
		entry.drainTimer.Stop()
		entry.drainTimer = nil
	}
	for id, t := range entry.graceTimers {
		t.Stop()
		delete(entry.graceTimers, id)
		delete(entry.graceGens, id)
	}

	roomID := entry.room.ID
	h.hub.Broadcast(roomID, Event{Type: EventRoomDeleted, Data: RoomDeletedData{RoomID: roomID}})
	h.hub.CloseRoom(roomID)
	h.reg.Remove(roomID)
	h.deleteRoomRecord(roomID)
	h.log.Info("room removed", zap.String("room_id", roomID), zap.String("code", entry.room.Code))
}
