package gameserver

import (
	"encoding/json"

	"github.com/finalsentence/server/internal/game/phrase"
	"github.com/finalsentence/server/internal/game/typing"
)

// Outbound event types. Every message a client receives is an Event envelope
// carrying one of these in its Type field.
const (
	EventPlayerJoined     = "player_joined"
	EventPlayerLeft       = "player_left"
	EventHostChanged      = "host_changed"
	EventRoundStarted     = "round_started"
	EventPlayerCompleted  = "player_completed"
	EventPlayerError      = "player_error"
	EventPlayerEliminated = "player_eliminated"
	EventRoundFinished    = "round_finished"
	EventRoomState        = "room_state"
	EventRoomDeleted      = "room_deleted"
	EventError            = "error"
)

// Inbound message types accepted on the WebSocket.
const (
	MessageJoin       = "join"
	MessageReconnect  = "reconnect"
	MessageStartRound = "start_round"
	MessageSubmitText = "submit_text"
	MessageLeave      = "leave"
)

// Event is the outbound envelope written to every client channel.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Inbound is the envelope read from a client. Payload stays raw until the
// type is known.
type Inbound struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload accompanies "join" messages.
type JoinPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// SubmitPayload accompanies "submit_text" messages. ElapsedSeconds is the
// client-reported typing time; validating it is out of scope.
type SubmitPayload struct {
	Text           string  `json:"text"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// PlayerLeftData is the payload of player_left events.
type PlayerLeftData struct {
	PlayerID string `json:"playerId"`
}

// HostChangedData is the payload of host_changed events.
type HostChangedData struct {
	HostID string `json:"hostId"`
}

// RoundStartedData is the payload of round_started events.
type RoundStartedData struct {
	Phrase          phrase.Phrase `json:"phrase"`
	DurationSeconds float64       `json:"durationSeconds"`
	RoundNumber     int           `json:"roundNumber"`
}

// PlayerCompletedData is the payload of player_completed events.
type PlayerCompletedData struct {
	PlayerID string  `json:"playerId"`
	WPM      float64 `json:"wpm"`
}

// PlayerErrorData is the payload of player_error events.
type PlayerErrorData struct {
	PlayerID   string `json:"playerId"`
	ErrorCount int    `json:"errorCount"`
}

// PlayerEliminatedData is the payload of player_eliminated events.
type PlayerEliminatedData struct {
	PlayerID string                   `json:"playerId"`
	Reason   typing.EliminationReason `json:"reason"`
}

// RoundFinishedData is the payload of round_finished events. WinnerID is
// omitted when the round produced no winner.
type RoundFinishedData struct {
	WinnerID string                `json:"winnerId,omitempty"`
	Stats    []typing.PlayerResult `json:"stats"`
}

// RoomStateData is the full snapshot sent to a client when its socket
// connects, and returned by the HTTP room endpoints.
type RoomStateData struct {
	ID               string            `json:"id"`
	Code             string            `json:"code"`
	Kind             typing.Kind       `json:"kind"`
	Status           typing.RoomStatus `json:"status"`
	HostID           string            `json:"hostId"`
	MaxPlayers       int               `json:"maxPlayers"`
	Round            int               `json:"round"`
	Players          []typing.Player   `json:"players"`
	CurrentPhrase    *phrase.Phrase    `json:"currentPhrase,omitempty"`
	RemainingSeconds float64           `json:"remainingSeconds,omitempty"`
}

// RoomDeletedData is the payload of room_deleted events.
type RoomDeletedData struct {
	RoomID string `json:"roomId"`
}

// ErrorData is the payload of error events, sent directly to one client and
// never broadcast.
type ErrorData struct {
	Message string `json:"message"`
}

func errorEvent(msg string) Event {
	return Event{Type: EventError, Data: ErrorData{Message: msg}}
}
