package gameserver

import (
	"time"

	"go.uber.org/zap"

	"github.com/finalsentence/server/internal/game/typing"
	"github.com/finalsentence/server/internal/storage"
)

// StartRound draws a phrase and starts a round. Any member may start one; a
// start inside the drain window of a finished round reuses the room and
// cancels its removal.
//
// Postcondition: On success the room is Playing, the round deadline timer is
// armed, and round_started has been broadcast.
func (h *RoomHandler) StartRound(roomID, playerID string) error {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.room.FindPlayer(playerID) == nil {
		return ErrPlayerNotFound
	}
	if err := entry.room.CanStartRound(h.cfg.MinPlayers); err != nil {
		return err
	}

	ph := h.pool.Draw()
	entry.room.StartRound(&ph, time.Now())

	entry.roundGen++
	gen := entry.roundGen
	if entry.drainTimer != nil {
		entry.drainTimer.Stop()
		entry.drainTimer = nil
	}
	if entry.roundTimer != nil {
		entry.roundTimer.Stop()
	}
	entry.roundTimer = NewTimer(entry.room.RoundDuration, func() {
		h.onRoundTimeout(roomID, gen)
	})

	h.hub.Broadcast(roomID, Event{Type: EventRoundStarted, Data: RoundStartedData{
		Phrase:          ph,
		DurationSeconds: entry.room.RoundDuration.Seconds(),
		RoundNumber:     entry.room.Round,
	}})
	h.persistRoomLocked(entry.room)
	h.log.Info("round started",
		zap.String("room_id", roomID),
		zap.Int("round", entry.room.Round),
		zap.String("phrase_id", ph.ID),
		zap.Int("players", len(entry.room.Players)))
	return nil
}

// Submit scores one typed attempt. Submissions that cannot apply, such as
// ones racing a finished round or a removed room, are dropped without a
// reply; the round events tell the client everything it needs.
func (h *RoomHandler) Submit(roomID, playerID, text string, elapsedSeconds float64) {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	outcome, p := entry.room.ApplySubmission(playerID, text, elapsedSeconds, h.cfg.MaxErrors)
	switch outcome {
	case typing.SubmitIgnored:
		return
	case typing.SubmitCompleted:
		h.hub.Broadcast(roomID, Event{Type: EventPlayerCompleted, Data: PlayerCompletedData{
			PlayerID: p.ID,
			WPM:      p.WPM,
		}})
	case typing.SubmitRejected:
		h.hub.Broadcast(roomID, Event{Type: EventPlayerError, Data: PlayerErrorData{
			PlayerID:   p.ID,
			ErrorCount: p.Errors,
		}})
	case typing.SubmitEliminated:
		h.hub.Broadcast(roomID, Event{Type: EventPlayerError, Data: PlayerErrorData{
			PlayerID:   p.ID,
			ErrorCount: p.Errors,
		}})
		h.hub.Broadcast(roomID, Event{Type: EventPlayerEliminated, Data: PlayerEliminatedData{
			PlayerID: p.ID,
			Reason:   p.Reason,
		}})
	}

	if entry.room.AllTerminal() {
		h.finishRoundLocked(entry, entry.room.CompletedWinner(), false)
		return
	}
	if ls := entry.room.LastStanding(); ls != nil {
		h.finishRoundLocked(entry, ls, false)
		return
	}
	h.persistRoomLocked(entry.room)
}

// onRoundTimeout ends the round when its deadline lapses. The generation
// token makes the callback a no-op when the round already finished or the
// room restarted.
func (h *RoomHandler) onRoundTimeout(roomID string, gen int) {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.roundGen != gen || entry.room.Status != typing.RoomPlaying {
		return
	}

	h.log.Info("round timed out",
		zap.String("room_id", roomID),
		zap.Int("round", entry.room.Round))
	h.finishRoundLocked(entry, entry.room.BestEffortWinner(), true)
}

// finishRoundLocked settles the round: winner was already resolved by the
// caller and is never second-guessed here. Caller holds the entry lock.
//
// Postcondition: Status == RoomFinished, round_finished has been broadcast
// after any timeout eliminations, the match record and leaderboard writes are
// in flight, and the drain timer is armed.
func (h *RoomHandler) finishRoundLocked(entry *roomEntry, winner *typing.Player, byTimeout bool) {
	room := entry.room

	var phrases []string
	if room.CurrentPhrase != nil {
		phrases = []string{room.CurrentPhrase.Text}
	}
	var durationSeconds float64
	if !room.RoundStartedAt.IsZero() {
		durationSeconds = time.Since(room.RoundStartedAt).Seconds()
	}

	var timedOut []string
	if byTimeout {
		for _, p := range room.Players {
			if p.Status == typing.StatusPlaying {
				timedOut = append(timedOut, p.ID)
			}
		}
	}

	entry.roundGen++
	gen := entry.roundGen
	if entry.roundTimer != nil {
		entry.roundTimer.Stop()
		entry.roundTimer = nil
	}

	room.Finish(byTimeout)

	for _, id := range timedOut {
		h.hub.Broadcast(room.ID, Event{Type: EventPlayerEliminated, Data: PlayerEliminatedData{
			PlayerID: id,
			Reason:   typing.ReasonTimeout,
		}})
	}

	results := room.Results()
	var winnerID string
	if winner != nil {
		winnerID = winner.ID
	}
	h.hub.Broadcast(room.ID, Event{Type: EventRoundFinished, Data: RoundFinishedData{
		WinnerID: winnerID,
		Stats:    results,
	}})

	h.persistMatch(storage.MatchRecord{
		ID:              newMatchID(),
		RoomID:          room.ID,
		WinnerID:        winnerID,
		Stats:           results,
		Phrases:         phrases,
		DurationSeconds: durationSeconds,
	})
	h.recordScores(results)
	h.persistRoomLocked(room)

	roomID := room.ID
	if entry.drainTimer != nil {
		entry.drainTimer.Stop()
	}
	entry.drainTimer = NewTimer(h.cfg.DrainDelay, func() {
		h.onDrainExpiry(roomID, gen)
	})

	h.log.Info("round finished",
		zap.String("room_id", roomID),
		zap.Int("round", room.Round),
		zap.String("winner_id", winnerID),
		zap.Bool("timeout", byTimeout),
		zap.Float64("duration_seconds", durationSeconds))
}

// onDrainExpiry removes a finished room nobody restarted. A round started
// inside the drain window bumps the generation and voids this callback.
func (h *RoomHandler) onDrainExpiry(roomID string, gen int) {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.roundGen != gen || entry.room.Status != typing.RoomFinished {
		return
	}

	h.log.Info("room drained", zap.String("room_id", roomID))
	h.removeRoomLocked(entry)
}
