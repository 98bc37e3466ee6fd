package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/finalsentence/server/internal/gameserver"
	"github.com/finalsentence/server/internal/storage"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type createRoomRequest struct {
	HostID     string `json:"hostId"`
	Kind       string `json:"kind,omitempty"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

// handleCreateRoom registers a room: POST /api/rooms. The host joins the
// room immediately; everyone else joins over the WebSocket.
func (a *API) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.HostID) == "" {
		writeError(w, http.StatusBadRequest, "hostId is required")
		return
	}

	state, err := a.rooms.CreateRoom(r.Context(), req.HostID, req.Kind, req.MaxPlayers)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "host not found")
		case errors.Is(err, gameserver.ErrInvalidRoomConfig):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			a.log.Error("creating room", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, state)
}

// handleRoomByCode resolves a join code: GET /api/rooms/{code}. Codes are
// stored uppercase, so lookups fold case.
func (a *API) handleRoomByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["code"]))

	state, err := a.rooms.RoomStateByCode(code)
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handlePlayerStats aggregates match history: GET /api/players/{id}/stats.
// A player with no recorded matches gets all zeros, not a 404.
func (a *API) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	stats, err := a.store.GetPlayerStats(r.Context(), id)
	if err != nil {
		a.log.Error("loading player stats", zap.Error(err), zap.String("player_id", id))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleLeaderboard lists the best scores: GET /api/leaderboard?limit=N.
func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := a.board.Top(r.Context(), limit)
	if err != nil {
		a.log.Error("reading leaderboard", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
