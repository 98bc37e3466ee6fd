package typing

import "strings"

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// WordsPerMinute computes the throughput score for completing phraseText in
// elapsedSeconds.
//
// Postcondition: Returns wordCount/elapsedSeconds*60 when elapsedSeconds > 0,
// else 0. Never negative.
func WordsPerMinute(phraseText string, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return float64(WordCount(phraseText)) / elapsedSeconds * 60
}

// CompletedWinner returns the Completed player with the highest wpm, ties
// broken by earliest completion, or nil when nobody completed.
func (r *Room) CompletedWinner() *Player {
	var best *Player
	for _, p := range r.Players {
		if p.Status != StatusCompleted {
			continue
		}
		if best == nil || p.WPM > best.WPM || (p.WPM == best.WPM && p.CompletedSeq < best.CompletedSeq) {
			best = p
		}
	}
	return best
}

// BestEffortWinner returns the player maximizing (progress desc, wpm desc),
// ties broken by player list order, or nil when no player made any progress
// at all. Used to resolve a round the timer ended.
func (r *Room) BestEffortWinner() *Player {
	var best *Player
	for _, p := range r.Players {
		if best == nil || p.Progress > best.Progress ||
			(p.Progress == best.Progress && p.WPM > best.WPM) {
			best = p
		}
	}
	if best == nil || (best.Progress == 0 && best.WPM == 0) {
		return nil
	}
	return best
}

// PlayerResult is one player's end-of-round line, used in finish broadcasts
// and match records.
type PlayerResult struct {
	PlayerID string            `json:"playerId"`
	Name     string            `json:"name"`
	Status   Status            `json:"status"`
	WPM      float64           `json:"wpm"`
	Errors   int               `json:"errors"`
	Progress int               `json:"progress"`
	Reason   EliminationReason `json:"reason,omitempty"`
}

// Results snapshots every player's end-of-round stats in list order.
func (r *Room) Results() []PlayerResult {
	out := make([]PlayerResult, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, PlayerResult{
			PlayerID: p.ID,
			Name:     p.Name,
			Status:   p.Status,
			WPM:      p.WPM,
			Errors:   p.Errors,
			Progress: p.Progress,
			Reason:   p.Reason,
		})
	}
	return out
}
