package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finalsentence/server/internal/storage"
)

// MatchRepository persists finished-round records and aggregates per-player
// stats out of their JSONB snapshots.
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a MatchRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Save appends a finished-round record. Records are write-once; there is no
// update path.
//
// Precondition: rec.ID and rec.RoomID must be non-empty.
func (r *MatchRepository) Save(ctx context.Context, rec storage.MatchRecord) error {
	finishedAt := rec.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO matches (id, room_id, winner_id, stats, phrases, duration_seconds, finished_at)
		 VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7)`,
		rec.ID, rec.RoomID, rec.WinnerID, rec.Stats, rec.Phrases, rec.DurationSeconds, finishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}
	return nil
}

// StatsFor aggregates a player's match history. Each match contributes the
// player's single stats element; wins are counted off the match winner
// column.
//
// Postcondition: A player with no matches yields zero stats, not an error.
func (r *MatchRepository) StatsFor(ctx context.Context, playerID string) (storage.PlayerStats, error) {
	var stats storage.PlayerStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE m.winner_id::text = $1),
		        COALESCE(AVG((s->>'wpm')::float8), 0),
		        COALESCE(MAX((s->>'wpm')::float8), 0),
		        COALESCE(SUM((s->>'errors')::int), 0)
		 FROM matches m
		 CROSS JOIN LATERAL jsonb_array_elements(m.stats) AS s
		 WHERE s->>'playerId' = $1`,
		playerID,
	).Scan(&stats.GamesPlayed, &stats.GamesWon, &stats.AvgWPM, &stats.BestWPM, &stats.TotalErrors)
	if err != nil {
		return storage.PlayerStats{}, fmt.Errorf("aggregating player stats: %w", err)
	}
	return stats, nil
}
