package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finalsentence/server/internal/storage"
)

const minPasswordLen = 6

type registerRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Avatar   string `json:"avatar,omitempty"`
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// playerResponse is the public view of a stored player. The password hash
// never leaves the store.
type playerResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// handleRegister creates an account: POST /api/auth/register.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := storage.HashPassword(req.Password)
	if err != nil {
		a.log.Error("hashing password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	p, err := a.store.SavePlayer(r.Context(), storage.Player{
		ID:           uuid.NewString(),
		Name:         name,
		Avatar:       req.Avatar,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "that name is already taken")
			return
		}
		a.log.Error("saving player", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.log.Info("player registered", zap.String("player_id", p.ID), zap.String("name", p.Name))
	writeJSON(w, http.StatusCreated, playerResponse{ID: p.ID, Name: p.Name, Avatar: p.Avatar})
}

// handleLogin verifies credentials: POST /api/auth/login. Missing accounts
// and wrong passwords both come back 401 so the response does not reveal
// which names exist.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name and password are required")
		return
	}

	p, err := a.store.GetPlayerByName(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		a.log.Error("loading player", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !storage.CheckPassword(req.Password, p.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	a.log.Info("player logged in", zap.String("player_id", p.ID), zap.String("name", p.Name))
	writeJSON(w, http.StatusOK, playerResponse{ID: p.ID, Name: p.Name, Avatar: p.Avatar})
}
