// Package httpapi exposes the REST surface of the game server: account
// registration and login, room creation and join-code lookup, player stats,
// the leaderboard, and health. Room mutations beyond creation happen over the
// WebSocket, not here.
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/finalsentence/server/internal/gameserver"
	"github.com/finalsentence/server/internal/leaderboard"
	"github.com/finalsentence/server/internal/storage"
)

const pingTimeout = 2 * time.Second

// API bundles the handlers behind the REST routes.
type API struct {
	log   *zap.Logger
	store storage.Store
	board *leaderboard.Leaderboard
	rooms *gameserver.RoomHandler
}

// NewAPI creates the REST handler set.
//
// Precondition: log, store, and rooms must be non-nil. board may be nil when
// the leaderboard is disabled.
func NewAPI(log *zap.Logger, store storage.Store, board *leaderboard.Leaderboard, rooms *gameserver.RoomHandler) *API {
	return &API{
		log:   log,
		store: store,
		board: board,
		rooms: rooms,
	}
}

// Router builds the route table. The caller owns the returned router and may
// mount additional routes, such as the WebSocket endpoint, on it.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.requestLogger)

	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", a.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", a.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/rooms", a.handleCreateRoom).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}", a.handleRoomByCode).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}/stats", a.handlePlayerStats).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", a.handleLeaderboard).Methods(http.MethodGet)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type healthResponse struct {
	Status      string `json:"status"`
	Store       string `json:"store"`
	Leaderboard string `json:"leaderboard"`
}

// handleHealth reports GET /healthz: store and leaderboard reachability.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "ok", Leaderboard: "ok"}
	status := http.StatusOK

	if err := a.store.Ping(ctx); err != nil {
		a.log.Warn("store ping failed", zap.Error(err))
		resp.Status, resp.Store = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := a.board.Ping(ctx); err != nil {
		a.log.Warn("leaderboard ping failed", zap.Error(err))
		resp.Status, resp.Leaderboard = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade pass through the logging wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		a.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
