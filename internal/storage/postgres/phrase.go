package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finalsentence/server/internal/game/phrase"
)

// PhraseRepository persists the phrase corpus rounds draw from.
type PhraseRepository struct {
	db *pgxpool.Pool
}

// NewPhraseRepository creates a PhraseRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPhraseRepository(db *pgxpool.Pool) *PhraseRepository {
	return &PhraseRepository{db: db}
}

// List returns phrases in insertion order. A negative limit returns the
// whole corpus.
func (r *PhraseRepository) List(ctx context.Context, limit int) ([]phrase.Phrase, error) {
	q := `SELECT id, text, difficulty, category FROM phrases ORDER BY created_at ASC, id ASC`
	if limit >= 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing phrases: %w", err)
	}
	defer rows.Close()

	phrases := make([]phrase.Phrase, 0)
	for rows.Next() {
		var p phrase.Phrase
		if err := rows.Scan(&p.ID, &p.Text, &p.Difficulty, &p.Category); err != nil {
			return nil, fmt.Errorf("scanning phrase row: %w", err)
		}
		phrases = append(phrases, p)
	}
	return phrases, rows.Err()
}

// Seed upserts phrases keyed by their trimmed text. Existing rows keep their
// id and get the incoming difficulty and category; new rows are inserted with
// a generated id when none is supplied. Blank texts are skipped.
//
// Postcondition: Returns how many rows were inserted and how many updated.
func (r *PhraseRepository) Seed(ctx context.Context, phrases []phrase.Phrase) (int, int, error) {
	var inserted, updated int
	for _, p := range phrases {
		p.Text = strings.TrimSpace(p.Text)
		if p.Text == "" {
			continue
		}

		tag, err := r.db.Exec(ctx,
			`UPDATE phrases SET difficulty = $2, category = $3 WHERE text = $1`,
			p.Text, p.Difficulty, p.Category,
		)
		if err != nil {
			return inserted, updated, fmt.Errorf("updating phrase: %w", err)
		}
		if tag.RowsAffected() > 0 {
			updated++
			continue
		}

		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, err := r.db.Exec(ctx,
			`INSERT INTO phrases (id, text, difficulty, category)
			 VALUES ($1, $2, $3, $4)`,
			p.ID, p.Text, p.Difficulty, p.Category,
		); err != nil {
			return inserted, updated, fmt.Errorf("inserting phrase: %w", err)
		}
		inserted++
	}
	return inserted, updated, nil
}
