// Package leaderboard tracks each player's best words-per-minute in a Redis
// sorted set. It is an optional side surface: a nil *Leaderboard is valid and
// every method on it is a no-op, which is how the server runs when Redis is
// not configured.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	scoresKey = "leaderboard:wpm"
	namesKey  = "leaderboard:names"
)

// Entry is one leaderboard row.
type Entry struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	WPM      float64 `json:"wpm"`
}

// Leaderboard stores best-wpm scores in Redis.
type Leaderboard struct {
	client *redis.Client
}

// New connects to the Redis instance at url (redis:// form) and verifies it
// responds to a ping.
//
// Postcondition: Returns a usable Leaderboard or a non-nil error.
func New(ctx context.Context, url string) (*Leaderboard, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Leaderboard{client: client}, nil
}

// Record stores wpm as the player's score if it beats their previous best,
// and refreshes the display name either way. Recording on a nil leaderboard
// is a no-op.
//
// Precondition: playerID must be non-empty.
func (l *Leaderboard) Record(ctx context.Context, playerID, name string, wpm float64) error {
	if l == nil {
		return nil
	}
	if err := l.client.ZAddGT(ctx, scoresKey, redis.Z{Score: wpm, Member: playerID}).Err(); err != nil {
		return fmt.Errorf("recording score: %w", err)
	}
	if err := l.client.HSet(ctx, namesKey, playerID, name).Err(); err != nil {
		return fmt.Errorf("recording name: %w", err)
	}
	return nil
}

// Top returns the n best players ordered by descending wpm. A nil
// leaderboard returns an empty slice.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]Entry, error) {
	if l == nil || n <= 0 {
		return []Entry{}, nil
	}

	scores, err := l.client.ZRevRangeWithScores(ctx, scoresKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading scores: %w", err)
	}
	if len(scores) == 0 {
		return []Entry{}, nil
	}

	ids := make([]string, len(scores))
	for i, z := range scores {
		ids[i] = z.Member.(string)
	}
	names, err := l.client.HMGet(ctx, namesKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading names: %w", err)
	}

	entries := make([]Entry, len(scores))
	for i, z := range scores {
		name := ""
		if s, ok := names[i].(string); ok {
			name = s
		}
		entries[i] = Entry{PlayerID: ids[i], Name: name, WPM: z.Score}
	}
	return entries, nil
}

// Ping reports whether Redis is reachable. A nil leaderboard is healthy.
func (l *Leaderboard) Ping(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.client.Ping(ctx).Err()
}

// Close releases the Redis connection. Safe on nil.
func (l *Leaderboard) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}
