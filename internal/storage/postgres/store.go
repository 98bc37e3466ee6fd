// Package postgres provides PostgreSQL persistence using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finalsentence/server/internal/config"
	"github.com/finalsentence/server/internal/game/phrase"
	"github.com/finalsentence/server/internal/storage"
)

// Store implements storage.Store on top of a pgx connection pool. It is a
// thin facade over per-entity repositories so tests and tools can also use
// the repositories directly.
type Store struct {
	db      *pgxpool.Pool
	players *PlayerRepository
	rooms   *RoomRepository
	matches *MatchRepository
	phrases *PhraseRepository
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a connected Store from the given configuration.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Store or a non-nil error. The store is
// ready for queries upon successful return.
func NewStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return NewStoreFromPool(pool), nil
}

// NewStoreFromPool wraps an already connected pool. The caller retains
// ownership of the pool's lifetime only until Close is called on the Store.
func NewStoreFromPool(pool *pgxpool.Pool) *Store {
	return &Store{
		db:      pool,
		players: NewPlayerRepository(pool),
		rooms:   NewRoomRepository(pool),
		matches: NewMatchRepository(pool),
		phrases: NewPhraseRepository(pool),
	}
}

func (s *Store) SavePlayer(ctx context.Context, p storage.Player) (storage.Player, error) {
	return s.players.Save(ctx, p)
}

func (s *Store) GetPlayer(ctx context.Context, id string) (storage.Player, error) {
	return s.players.GetByID(ctx, id)
}

func (s *Store) GetPlayerByName(ctx context.Context, name string) (storage.Player, error) {
	return s.players.GetByName(ctx, name)
}

func (s *Store) CreateRoom(ctx context.Context, rec storage.RoomRecord) (string, error) {
	return s.rooms.Create(ctx, rec)
}

func (s *Store) GetRoom(ctx context.Context, id string) (storage.RoomRecord, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (storage.RoomRecord, error) {
	return s.rooms.GetByCode(ctx, code)
}

func (s *Store) UpdateRoom(ctx context.Context, rec storage.RoomRecord) error {
	return s.rooms.Update(ctx, rec)
}

func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	return s.rooms.Delete(ctx, id)
}

func (s *Store) SaveMatch(ctx context.Context, rec storage.MatchRecord) error {
	return s.matches.Save(ctx, rec)
}

func (s *Store) GetPlayerStats(ctx context.Context, playerID string) (storage.PlayerStats, error) {
	return s.matches.StatsFor(ctx, playerID)
}

func (s *Store) GetPhrases(ctx context.Context, limit int) ([]phrase.Phrase, error) {
	return s.phrases.List(ctx, limit)
}

func (s *Store) SeedPhrases(ctx context.Context, phrases []phrase.Phrase) (int, int, error) {
	return s.phrases.Seed(ctx, phrases)
}

// Ping checks that the database is reachable.
//
// Precondition: The store must not be closed.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases all pool resources.
//
// Postcondition: The store is no longer usable after calling Close.
func (s *Store) Close() {
	s.db.Close()
}

// DB returns the underlying pgxpool.Pool for use by tests and tools.
func (s *Store) DB() *pgxpool.Pool {
	return s.db
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
