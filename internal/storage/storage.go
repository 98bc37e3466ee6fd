// Package storage defines the persistence contract shared by the PostgreSQL
// and in-memory backends: stored record types, sentinel errors, and password
// hashing helpers. All writes issued by the game core are best-effort side
// effects; callers log failures and move on.
package storage

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/finalsentence/server/internal/game/phrase"
	"github.com/finalsentence/server/internal/game/typing"
)

// ErrNotFound is returned when a lookup yields no matching record.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// such as a taken player name or an active room code collision.
var ErrDuplicate = errors.New("duplicate record")

// Player is the persisted identity behind a room participant. The in-room
// player carries only id, name and avatar; the password hash never enters
// room state.
type Player struct {
	ID           string
	Name         string
	Avatar       string
	PasswordHash string
	CreatedAt    time.Time
}

// RoomPlayer is one element of a room snapshot's players column.
type RoomPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
}

// RoomRecord is the persisted form of an active room. Records exist only
// while the room is live; removing the room from the registry deletes its
// record, so code uniqueness in the table covers exactly the active rooms.
type RoomRecord struct {
	ID         string
	Code       string
	Kind       string
	Status     string
	HostID     string
	MaxPlayers int
	Round      int
	Players    []RoomPlayer
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SnapshotRoom flattens live room state into its persisted form.
//
// Precondition: The caller must hold the room's lock; the returned record
// shares no memory with the room and may cross goroutines freely.
func SnapshotRoom(r *typing.Room) RoomRecord {
	players := make([]RoomPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, RoomPlayer{
			ID:        p.ID,
			Name:      p.Name,
			Avatar:    p.Avatar,
			Status:    string(p.Status),
			Connected: p.Connected,
		})
	}
	return RoomRecord{
		ID:         r.ID,
		Code:       r.Code,
		Kind:       string(r.Kind),
		Status:     string(r.Status),
		HostID:     r.HostID,
		MaxPlayers: r.MaxPlayers,
		Round:      r.Round,
		Players:    players,
	}
}

// MatchRecord is the write-once result of a finished round: the final stats
// of every participant, the phrases played, and the winner if one was
// resolved. WinnerID is empty when the round produced no winner.
type MatchRecord struct {
	ID              string
	RoomID          string
	WinnerID        string
	Stats           []typing.PlayerResult
	Phrases         []string
	DurationSeconds float64
	FinishedAt      time.Time
}

// PlayerStats aggregates a player's match history.
type PlayerStats struct {
	GamesPlayed int     `json:"gamesPlayed"`
	GamesWon    int     `json:"gamesWon"`
	AvgWPM      float64 `json:"avgWpm"`
	BestWPM     float64 `json:"bestWpm"`
	TotalErrors int     `json:"totalErrors"`
}

// Store is the persistence gateway consumed by the game server and HTTP API.
// Implementations map backend failures to the package sentinels where a
// sentinel applies and wrap everything else.
type Store interface {
	// SavePlayer inserts a new player record, returning it with CreatedAt
	// set, or ErrDuplicate if the name is taken.
	SavePlayer(ctx context.Context, p Player) (Player, error)
	// GetPlayer returns the player with the given id or ErrNotFound.
	GetPlayer(ctx context.Context, id string) (Player, error)
	// GetPlayerByName returns the player with the given name or ErrNotFound.
	GetPlayerByName(ctx context.Context, name string) (Player, error)

	// CreateRoom inserts a room snapshot and returns its id, or ErrDuplicate
	// on an active-code collision.
	CreateRoom(ctx context.Context, rec RoomRecord) (string, error)
	// GetRoom returns the room snapshot with the given id or ErrNotFound.
	GetRoom(ctx context.Context, id string) (RoomRecord, error)
	// GetRoomByCode returns the active room snapshot with the given join
	// code or ErrNotFound.
	GetRoomByCode(ctx context.Context, code string) (RoomRecord, error)
	// UpdateRoom replaces the stored snapshot for rec.ID, or ErrNotFound.
	UpdateRoom(ctx context.Context, rec RoomRecord) error
	// DeleteRoom removes the room snapshot. Deleting an absent room is not
	// an error; drain and eviction paths race benignly.
	DeleteRoom(ctx context.Context, id string) error

	// SaveMatch appends a finished-round record.
	SaveMatch(ctx context.Context, rec MatchRecord) error
	// GetPlayerStats aggregates the player's match history. A player with
	// no matches yields zero stats, not ErrNotFound.
	GetPlayerStats(ctx context.Context, playerID string) (PlayerStats, error)

	// GetPhrases returns up to limit phrases from the corpus.
	GetPhrases(ctx context.Context, limit int) ([]phrase.Phrase, error)
	// SeedPhrases upserts phrases by text, reporting how many were inserted
	// and how many updated an existing row.
	SeedPhrases(ctx context.Context, phrases []phrase.Phrase) (inserted, updated int, err error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close()
}

// HashPassword creates a bcrypt hash of the given password.
//
// Precondition: password must be non-empty.
// Postcondition: Returns a bcrypt hash string.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
//
// Postcondition: Returns true if password matches the hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
