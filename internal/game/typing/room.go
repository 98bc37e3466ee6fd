package typing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finalsentence/server/internal/game/phrase"
)

// Kind distinguishes publicly listed rooms from invite-only ones.
type Kind string

const (
	KindPublic  Kind = "public"
	KindPrivate Kind = "private"
)

// ParseKind maps a wire value to a Kind. The empty string defaults to public.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindPublic:
		return KindPublic, nil
	case KindPrivate:
		return KindPrivate, nil
	default:
		return "", fmt.Errorf("unknown room kind %q", s)
	}
}

// RoomStatus is a room's position in its lifecycle.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

var (
	// ErrRoomFull rejects a join against a room at capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrAlreadyInRoom rejects adding a player id twice.
	ErrAlreadyInRoom = errors.New("player already in room")
	// ErrRoundInProgress rejects starting a round while one is running.
	ErrRoundInProgress = errors.New("round already in progress")
	// ErrNotEnoughPlayers rejects starting a round below the minimum population.
	ErrNotEnoughPlayers = errors.New("not enough players to start a round")
)

// Room is the in-memory aggregate for one game session.
//
// Invariant: Players is ordered by join time and unique by ID.
// Invariant: len(Players) <= MaxPlayers.
// Invariant: Status == RoomPlaying iff CurrentPhrase != nil and
// RoundStartedAt is non-zero.
type Room struct {
	ID             string
	Code           string
	Kind           Kind
	Players        []*Player
	HostID         string
	MaxPlayers     int
	Status         RoomStatus
	Round          int
	CurrentPhrase  *phrase.Phrase
	RoundStartedAt time.Time
	RoundDuration  time.Duration

	// completedSeq hands out completion order within the current round.
	completedSeq int
}

// NewRoom creates a Waiting room seeded with its host.
//
// Precondition: host must be non-nil; maxPlayers >= 1; roundDuration > 0.
func NewRoom(id, code string, kind Kind, host *Player, maxPlayers int, roundDuration time.Duration) *Room {
	return &Room{
		ID:            id,
		Code:          code,
		Kind:          kind,
		Players:       []*Player{host},
		HostID:        host.ID,
		MaxPlayers:    maxPlayers,
		Status:        RoomWaiting,
		RoundDuration: roundDuration,
	}
}

// FindPlayer returns the player with the given id, or nil.
func (r *Room) FindPlayer(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddPlayer appends a player to the room.
//
// Postcondition: On nil error, the player is last in the list and the
// capacity invariant holds. Returns ErrRoomFull or ErrAlreadyInRoom
// without mutation otherwise.
func (r *Room) AddPlayer(p *Player) error {
	if r.FindPlayer(p.ID) != nil {
		return ErrAlreadyInRoom
	}
	if len(r.Players) >= r.MaxPlayers {
		return ErrRoomFull
	}
	r.Players = append(r.Players, p)
	return nil
}

// RemovePlayer deletes the player with the given id, reassigning the host to
// the first remaining player when the host leaves.
//
// Postcondition: Returns the removed player (nil if absent) and whether the
// host changed. When the room empties, HostID is left pointing at the
// departed host; the caller removes the room anyway.
func (r *Room) RemovePlayer(id string) (*Player, bool) {
	for i, p := range r.Players {
		if p.ID != id {
			continue
		}
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		if r.HostID == id && len(r.Players) > 0 {
			r.HostID = r.Players[0].ID
			return p, true
		}
		return p, false
	}
	return nil, false
}

// CanStartRound checks the round-start preconditions without mutating state.
//
// Postcondition: Returns nil when a round may start, ErrRoundInProgress or
// ErrNotEnoughPlayers otherwise.
func (r *Room) CanStartRound(minPlayers int) error {
	if r.Status == RoomPlaying {
		return ErrRoundInProgress
	}
	if len(r.Players) < minPlayers {
		return ErrNotEnoughPlayers
	}
	return nil
}

// StartRound begins a new round with the given phrase.
//
// Precondition: CanStartRound returned nil; ph must be non-nil.
// Postcondition: Status == RoomPlaying, Round incremented, every player
// Playing with zeroed counters.
func (r *Room) StartRound(ph *phrase.Phrase, now time.Time) {
	r.Status = RoomPlaying
	r.Round++
	r.CurrentPhrase = ph
	r.RoundStartedAt = now
	r.completedSeq = 0
	for _, p := range r.Players {
		p.ResetForRound()
	}
}

// SubmitOutcome classifies what a submission did to the round.
type SubmitOutcome int

const (
	// SubmitIgnored means the submission did not apply: unknown player, no
	// round running, or the player is not Playing. No state changed.
	SubmitIgnored SubmitOutcome = iota
	// SubmitCompleted means the text matched and the player finished.
	SubmitCompleted
	// SubmitRejected means the text was wrong; the player keeps playing.
	SubmitRejected
	// SubmitEliminated means the wrong text reached the error cap.
	SubmitEliminated
)

// ApplySubmission scores one submission against the current phrase.
// Correctness is an exact, case-sensitive match after trimming leading and
// trailing whitespace from both sides.
//
// Postcondition: Returns the outcome and the affected player (nil only for
// unknown ids). SubmitIgnored guarantees no mutation.
func (r *Room) ApplySubmission(playerID, text string, elapsedSeconds float64, maxErrors int) (SubmitOutcome, *Player) {
	p := r.FindPlayer(playerID)
	if p == nil {
		return SubmitIgnored, nil
	}
	if r.Status != RoomPlaying || r.CurrentPhrase == nil || p.Status != StatusPlaying {
		return SubmitIgnored, p
	}

	if strings.TrimSpace(text) == strings.TrimSpace(r.CurrentPhrase.Text) {
		r.completedSeq++
		p.Complete(WordsPerMinute(r.CurrentPhrase.Text, elapsedSeconds), r.completedSeq)
		return SubmitCompleted, p
	}

	if p.RecordError(maxErrors) {
		return SubmitEliminated, p
	}
	return SubmitRejected, p
}

// AllTerminal reports whether every player has finished the round one way or
// the other. An empty room is not terminal.
func (r *Room) AllTerminal() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if !p.Status.Terminal() {
			return false
		}
	}
	return true
}

// LastStanding returns the sole still-Playing player once every other player
// has been eliminated, or nil. A Completed player anywhere in the room means
// the race was decided by typing rather than attrition, so no default winner
// applies. Rooms below two players never produce a default winner.
func (r *Room) LastStanding() *Player {
	if len(r.Players) < 2 {
		return nil
	}
	var alive *Player
	for _, p := range r.Players {
		if p.Status == StatusEliminated {
			continue
		}
		if alive != nil {
			return nil
		}
		alive = p
	}
	if alive != nil && alive.Status == StatusPlaying {
		return alive
	}
	return nil
}

// Finish ends the current round. When timeout is true, every still-Playing
// player is eliminated with ReasonTimeout first.
//
// Postcondition: Status == RoomFinished; CurrentPhrase and RoundStartedAt are
// cleared so the Playing invariant holds.
func (r *Room) Finish(timeout bool) {
	if timeout {
		for _, p := range r.Players {
			if p.Status == StatusPlaying {
				p.Eliminate(ReasonTimeout)
			}
		}
	}
	r.Status = RoomFinished
	r.CurrentPhrase = nil
	r.RoundStartedAt = time.Time{}
}
