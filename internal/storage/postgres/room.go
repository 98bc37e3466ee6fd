package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finalsentence/server/internal/storage"
)

// RoomRepository persists snapshots of active rooms. The players column is
// JSONB; pgx marshals the snapshot slice in and out directly.
type RoomRepository struct {
	db *pgxpool.Pool
}

// NewRoomRepository creates a RoomRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a room snapshot.
//
// Precondition: rec.ID and rec.Code must be non-empty.
// Postcondition: Returns the room id, or storage.ErrDuplicate if the code
// collides with another active room.
func (r *RoomRepository) Create(ctx context.Context, rec storage.RoomRecord) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO rooms (id, code, kind, status, host_id, max_players, round, players)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		rec.ID, rec.Code, rec.Kind, rec.Status, rec.HostID, rec.MaxPlayers, rec.Round, rec.Players,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return "", storage.ErrDuplicate
		}
		return "", fmt.Errorf("inserting room: %w", err)
	}
	return id, nil
}

// GetByID retrieves a room snapshot by id.
//
// Postcondition: Returns the record or storage.ErrNotFound.
func (r *RoomRepository) GetByID(ctx context.Context, id string) (storage.RoomRecord, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByCode retrieves an active room snapshot by join code.
//
// Postcondition: Returns the record or storage.ErrNotFound.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (storage.RoomRecord, error) {
	return r.get(ctx, `WHERE code = $1`, code)
}

func (r *RoomRepository) get(ctx context.Context, where string, arg any) (storage.RoomRecord, error) {
	var rec storage.RoomRecord
	err := r.db.QueryRow(ctx,
		`SELECT id, code, kind, status, host_id, max_players, round, players, created_at, updated_at
		 FROM rooms `+where,
		arg,
	).Scan(
		&rec.ID, &rec.Code, &rec.Kind, &rec.Status, &rec.HostID,
		&rec.MaxPlayers, &rec.Round, &rec.Players, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.RoomRecord{}, storage.ErrNotFound
		}
		return storage.RoomRecord{}, fmt.Errorf("querying room: %w", err)
	}
	return rec, nil
}

// Update replaces the stored snapshot for rec.ID.
//
// Postcondition: Returns nil on success, storage.ErrNotFound if no row
// was updated.
func (r *RoomRepository) Update(ctx context.Context, rec storage.RoomRecord) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE rooms
		 SET code = $2, kind = $3, status = $4, host_id = $5, max_players = $6,
		     round = $7, players = $8, updated_at = NOW()
		 WHERE id = $1`,
		rec.ID, rec.Code, rec.Kind, rec.Status, rec.HostID, rec.MaxPlayers, rec.Round, rec.Players,
	)
	if err != nil {
		return fmt.Errorf("updating room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a room snapshot, freeing its join code.
//
// Postcondition: Returns nil whether or not the room existed; drain and
// eviction paths may race on the same room.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	return nil
}
