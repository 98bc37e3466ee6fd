package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finalsentence/server/internal/storage"
)

// PlayerRepository provides player persistence operations.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Save inserts a new player record.
//
// Precondition: p.ID and p.Name must be non-empty; p.PasswordHash must be a
// bcrypt hash.
// Postcondition: Returns the created player with CreatedAt set, or
// storage.ErrDuplicate if the name is taken.
func (r *PlayerRepository) Save(ctx context.Context, p storage.Player) (storage.Player, error) {
	var out storage.Player
	err := r.db.QueryRow(ctx,
		`INSERT INTO players (id, name, avatar, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, avatar, password_hash, created_at`,
		p.ID, p.Name, p.Avatar, p.PasswordHash,
	).Scan(&out.ID, &out.Name, &out.Avatar, &out.PasswordHash, &out.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.Player{}, storage.ErrDuplicate
		}
		return storage.Player{}, fmt.Errorf("inserting player: %w", err)
	}
	return out, nil
}

// GetByID retrieves a player by id.
//
// Postcondition: Returns the player or storage.ErrNotFound.
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (storage.Player, error) {
	var p storage.Player
	err := r.db.QueryRow(ctx,
		`SELECT id, name, avatar, password_hash, created_at
		 FROM players WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Avatar, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Player{}, storage.ErrNotFound
		}
		return storage.Player{}, fmt.Errorf("querying player: %w", err)
	}
	return p, nil
}

// GetByName retrieves a player by display name.
//
// Postcondition: Returns the player or storage.ErrNotFound.
func (r *PlayerRepository) GetByName(ctx context.Context, name string) (storage.Player, error) {
	var p storage.Player
	err := r.db.QueryRow(ctx,
		`SELECT id, name, avatar, password_hash, created_at
		 FROM players WHERE name = $1`,
		name,
	).Scan(&p.ID, &p.Name, &p.Avatar, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Player{}, storage.ErrNotFound
		}
		return storage.Player{}, fmt.Errorf("querying player: %w", err)
	}
	return p, nil
}
