// Package typing implements the core round state machine for the typing race:
// player and room aggregates, submission scoring, and winner resolution.
//
// The package is pure state: no locks, no channels, no I/O. Callers serialize
// access per room.
package typing

// Status is a player's standing within the current round.
type Status string

const (
	// StatusConnected is the default on join: no round active, or the player
	// is waiting for the next round to begin.
	StatusConnected Status = "connected"
	// StatusPlaying means the round is active and the player is still eligible.
	StatusPlaying Status = "playing"
	// StatusCompleted means the player submitted the exact phrase this round.
	StatusCompleted Status = "completed"
	// StatusEliminated means the player is out of contention this round.
	StatusEliminated Status = "eliminated"
)

// Terminal reports whether the status ends a player's participation in the
// current round.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusEliminated
}

// EliminationReason explains why a player was eliminated.
type EliminationReason string

const (
	// ReasonErrors marks elimination by accumulated wrong submissions.
	ReasonErrors EliminationReason = "errors"
	// ReasonTimeout marks elimination by round-timer expiry.
	ReasonTimeout EliminationReason = "timeout"
)

// progressPenalty is how many progress points one wrong submission costs.
const progressPenalty = 10

// Player is one participant's in-room state. Identity (ID, Name, Avatar) is
// owned by the store; everything else is round-scoped and discarded with the
// room.
type Player struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Avatar    string            `json:"avatar,omitempty"`
	Status    Status            `json:"status"`
	Errors    int               `json:"errors"`
	WPM       float64           `json:"wpm"`
	Progress  int               `json:"progress"`
	Connected bool              `json:"connected"`
	Reason    EliminationReason `json:"reason,omitempty"`
	// CompletedSeq orders completions within a round; lower completed earlier.
	// Zero means not completed.
	CompletedSeq int `json:"-"`
}

// NewPlayer returns a Connected player with zeroed round state.
func NewPlayer(id, name, avatar string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Avatar:    avatar,
		Status:    StatusConnected,
		Connected: true,
	}
}

// ResetForRound puts the player back into contention for a new round.
//
// Postcondition: Status == StatusPlaying; Errors, Progress, WPM, CompletedSeq
// and Reason are zeroed. The Connected flag is untouched.
func (p *Player) ResetForRound() {
	p.Status = StatusPlaying
	p.Errors = 0
	p.Progress = 0
	p.WPM = 0
	p.CompletedSeq = 0
	p.Reason = ""
}

// Complete records an exact-match submission.
//
// Precondition: p.Status == StatusPlaying; seq > 0.
// Postcondition: Status == StatusCompleted, Progress == 100, WPM == wpm.
func (p *Player) Complete(wpm float64, seq int) {
	p.Status = StatusCompleted
	p.Progress = 100
	p.WPM = wpm
	p.CompletedSeq = seq
}

// RecordError applies one wrong submission: the error count rises and
// progress drops by the penalty, floored at zero. Reaching maxErrors
// eliminates the player.
//
// Precondition: p.Status == StatusPlaying; maxErrors >= 1.
// Postcondition: Returns true iff this call eliminated the player.
func (p *Player) RecordError(maxErrors int) bool {
	p.Errors++
	p.Progress -= progressPenalty
	if p.Progress < 0 {
		p.Progress = 0
	}
	if p.Errors >= maxErrors {
		p.Eliminate(ReasonErrors)
		return true
	}
	return false
}

// Eliminate removes the player from contention for the current round.
//
// Postcondition: Status == StatusEliminated and Reason is set.
func (p *Player) Eliminate(reason EliminationReason) {
	p.Status = StatusEliminated
	p.Reason = reason
}
