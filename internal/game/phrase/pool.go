package phrase

import (
	"strings"

	"github.com/finalsentence/server/internal/game/rng"
)

// Pool is the immutable set of candidate phrases a server draws rounds from.
// It is built once at startup and is safe for concurrent use.
type Pool struct {
	phrases []Phrase
	src     rng.Source
}

// NewPool merges stored phrases with the built-in fallback corpus, deduplicated
// by trimmed text with stored entries winning, and returns a pool drawing from
// the result. stored may be nil or empty; the fallback guarantees the pool is
// never empty.
//
// Precondition: src must be non-nil.
// Postcondition: Len() > 0.
func NewPool(stored []Phrase, src rng.Source) *Pool {
	seen := make(map[string]bool)
	merged := make([]Phrase, 0, len(stored)+8)

	for _, p := range stored {
		text := strings.TrimSpace(p.Text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		p.Text = text
		merged = append(merged, p)
	}
	for _, p := range Fallback() {
		if seen[p.Text] {
			continue
		}
		seen[p.Text] = true
		merged = append(merged, p)
	}

	return &Pool{phrases: merged, src: src}
}

// Draw returns a uniformly random phrase from the pool.
//
// Postcondition: The returned phrase is a copy; mutating it does not affect
// the pool.
func (p *Pool) Draw() Phrase {
	return p.phrases[p.src.Intn(len(p.phrases))]
}

// Len returns the number of distinct phrases in the pool.
func (p *Pool) Len() int {
	return len(p.phrases)
}
