// Package gameserver orchestrates typing-race rooms: presence, rounds,
// scheduling, and event fan-out to WebSocket clients. All room state lives in
// memory; the store and the leaderboard are best-effort side surfaces that
// never block or veto the game.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finalsentence/server/internal/config"
	"github.com/finalsentence/server/internal/game/phrase"
	"github.com/finalsentence/server/internal/game/typing"
	"github.com/finalsentence/server/internal/leaderboard"
	"github.com/finalsentence/server/internal/storage"
)

// persistTimeout bounds every fire-and-forget store call.
const persistTimeout = 3 * time.Second

// ErrRoomNotFound is returned when a room id or join code matches no active room.
var ErrRoomNotFound = errors.New("room not found")

// ErrPlayerNotFound is returned when a player id is not present in the room.
var ErrPlayerNotFound = errors.New("player not found in room")

// ErrNameRequired is returned when a join carries an empty display name.
var ErrNameRequired = errors.New("player name required")

// ErrInvalidRoomConfig rejects creation parameters that cannot form a
// playable room, such as an unknown kind or a capacity below the start
// minimum.
var ErrInvalidRoomConfig = errors.New("invalid room configuration")

// RoomHandler processes every room-scoped operation: create, join, leave,
// disconnect grace, round start, submissions, and the timer callbacks. Each
// operation re-enters the room's lock via its registry entry, so two events
// for the same room are never applied concurrently.
type RoomHandler struct {
	cfg   config.GameConfig
	log   *zap.Logger
	store storage.Store
	board *leaderboard.Leaderboard
	pool  *phrase.Pool
	hub   *Hub
	reg   *Registry

	// wg tracks in-flight fire-and-forget persistence so Shutdown can drain
	// them before the process exits.
	wg sync.WaitGroup
}

// NewRoomHandler creates a RoomHandler.
//
// Precondition: log, store, pool, hub, and reg must be non-nil; board may be
// nil (leaderboard disabled).
func NewRoomHandler(
	cfg config.GameConfig,
	log *zap.Logger,
	store storage.Store,
	board *leaderboard.Leaderboard,
	pool *phrase.Pool,
	hub *Hub,
	reg *Registry,
) *RoomHandler {
	return &RoomHandler{
		cfg:   cfg,
		log:   log,
		store: store,
		board: board,
		pool:  pool,
		hub:   hub,
		reg:   reg,
	}
}

// Hub exposes the broadcast hub for the transport layer.
func (h *RoomHandler) Hub() *Hub {
	return h.hub
}

// CreateRoom registers a new room hosted by the stored player hostID and
// persists its first snapshot. maxPlayers <= 0 selects the configured
// default.
//
// Postcondition: On success the returned snapshot carries the generated room
// id and join code, and the host is the room's only player.
func (h *RoomHandler) CreateRoom(ctx context.Context, hostID, kind string, maxPlayers int) (RoomStateData, error) {
	k, err := typing.ParseKind(kind)
	if err != nil {
		return RoomStateData{}, fmt.Errorf("%w: %v", ErrInvalidRoomConfig, err)
	}
	if maxPlayers <= 0 {
		maxPlayers = h.cfg.MaxPlayers
	}
	if maxPlayers < h.cfg.MinPlayers {
		return RoomStateData{}, fmt.Errorf("%w: max players %d is below the start minimum %d", ErrInvalidRoomConfig, maxPlayers, h.cfg.MinPlayers)
	}

	stored, err := h.store.GetPlayer(ctx, hostID)
	if err != nil {
		return RoomStateData{}, err
	}

	host := typing.NewPlayer(stored.ID, stored.Name, stored.Avatar)
	entry := h.reg.Create(host, k, maxPlayers, h.cfg.RoundDuration)

	entry.mu.Lock()
	state := snapshotLocked(entry.room)
	rec := storage.SnapshotRoom(entry.room)
	entry.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if _, err := h.store.CreateRoom(ctx, rec); err != nil {
			h.log.Warn("persisting new room",
				zap.String("room_id", rec.ID), zap.Error(err))
		}
	}()

	h.log.Info("room created",
		zap.String("room_id", state.ID),
		zap.String("code", state.Code),
		zap.String("host_id", hostID),
		zap.Int("max_players", maxPlayers))
	return state, nil
}

// RoomStateByID returns a snapshot of the room, or ErrRoomNotFound.
func (h *RoomHandler) RoomStateByID(id string) (RoomStateData, error) {
	entry := h.reg.FindByID(id)
	if entry == nil {
		return RoomStateData{}, ErrRoomNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return snapshotLocked(entry.room), nil
}

// RoomStateByCode returns a snapshot of the active room holding the join
// code, or ErrRoomNotFound.
func (h *RoomHandler) RoomStateByCode(code string) (RoomStateData, error) {
	entry := h.reg.FindByCode(code)
	if entry == nil {
		return RoomStateData{}, ErrRoomNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return snapshotLocked(entry.room), nil
}

// snapshotLocked flattens the room into its wire snapshot. The caller must
// hold the entry lock; the snapshot shares no memory with live state.
func snapshotLocked(room *typing.Room) RoomStateData {
	players := make([]typing.Player, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, *p)
	}

	state := RoomStateData{
		ID:         room.ID,
		Code:       room.Code,
		Kind:       room.Kind,
		Status:     room.Status,
		HostID:     room.HostID,
		MaxPlayers: room.MaxPlayers,
		Round:      room.Round,
		Players:    players,
	}
	if room.CurrentPhrase != nil {
		ph := *room.CurrentPhrase
		state.CurrentPhrase = &ph
	}
	if room.Status == typing.RoomPlaying && !room.RoundStartedAt.IsZero() {
		remaining := room.RoundDuration - time.Since(room.RoundStartedAt)
		if remaining < 0 {
			remaining = 0
		}
		state.RemainingSeconds = remaining.Seconds()
	}
	return state
}

// persistRoomLocked snapshots the room under the held lock and updates the
// stored copy on a detached goroutine. Writes are unordered best-effort;
// a failure is logged and the in-memory room plays on.
func (h *RoomHandler) persistRoomLocked(room *typing.Room) {
	rec := storage.SnapshotRoom(room)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := h.store.UpdateRoom(ctx, rec); err != nil {
			h.log.Warn("persisting room",
				zap.String("room_id", rec.ID), zap.Error(err))
		}
	}()
}

// persistMatch appends the finished-round record on a detached goroutine.
func (h *RoomHandler) persistMatch(rec storage.MatchRecord) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := h.store.SaveMatch(ctx, rec); err != nil {
			h.log.Warn("persisting match",
				zap.String("room_id", rec.RoomID),
				zap.String("match_id", rec.ID),
				zap.Error(err))
		}
	}()
}

// deleteRoomRecord removes the stored snapshot on a detached goroutine,
// freeing the join code for reuse.
func (h *RoomHandler) deleteRoomRecord(roomID string) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := h.store.DeleteRoom(ctx, roomID); err != nil {
			h.log.Warn("deleting stored room",
				zap.String("room_id", roomID), zap.Error(err))
		}
	}()
}

// recordScores pushes every completed player's wpm to the leaderboard on a
// detached goroutine. Safe when the leaderboard is disabled.
func (h *RoomHandler) recordScores(results []typing.PlayerResult) {
	if h.board == nil {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		for _, r := range results {
			if r.Status != typing.StatusCompleted {
				continue
			}
			if err := h.board.Record(ctx, r.PlayerID, r.Name, r.WPM); err != nil {
				h.log.Warn("recording leaderboard score",
					zap.String("player_id", r.PlayerID), zap.Error(err))
			}
		}
	}()
}

// Shutdown removes every active room, closing all subscriber channels and
// stopping all timers, then blocks until in-flight persistence finishes.
//
// Postcondition: The registry is empty and no handler-owned goroutine is
// still writing to the store or the leaderboard.
func (h *RoomHandler) Shutdown() {
	for _, id := range h.reg.IDs() {
		entry := h.reg.FindByID(id)
		if entry == nil {
			continue
		}
		entry.mu.Lock()
		h.removeRoomLocked(entry)
		entry.mu.Unlock()
	}
	h.wg.Wait()
}

// newMatchID is a hook for tests that need deterministic match ids.
var newMatchID = uuid.NewString
