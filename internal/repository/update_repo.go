package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
)

type UpdateRepository struct {
	db *pgxpool.Pool
}

func NewUpdateRepository(db *pgxpool.Pool) *UpdateRepository {
	return &UpdateRepository{db: db}
}

// Upsert inserts an accepted update if it is not already stored for the
// user. A duplicate (user_id, source_id) is a benign no-op, never an error:
// concurrent runs for the same user rely on this for correctness.
// Returns whether a new row was created.
func (r *UpdateRepository) Upsert(ctx context.Context, u *model.Update) (bool, error) {
	query := `
        INSERT INTO updates (user_id, source_id, label, title, summary, discovered_at, is_important)
        VALUES ($1, $2, $3, $4, $5, NOW(), TRUE)
        ON CONFLICT (user_id, source_id) DO NOTHING
        RETURNING id, discovered_at
    `
	err := r.db.QueryRow(ctx, query, u.UserID, u.SourceID, u.Label, u.Title, u.Summary).
		Scan(&u.ID, &u.DiscoveredAt)
	if err != nil {
		// ON CONFLICT DO NOTHING yields no row for the losing writer.
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	u.IsImportant = true
	return true, nil
}

// ListSourceIDs returns the set of provider ids already recorded for the
// user. Persistence is the sole source of truth for deduplication, so the
// pipeline stays correct even when a prior run partially failed or raced.
func (r *UpdateRepository) ListSourceIDs(ctx context.Context, userID int) (map[string]struct{}, error) {
	query := `
        SELECT source_id
        FROM updates
        WHERE user_id = $1
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var sourceID string
		if err := rows.Scan(&sourceID); err != nil {
			return nil, err
		}
		seen[sourceID] = struct{}{}
	}
	return seen, rows.Err()
}

// ListByUser returns the user's updates ordered by discovered_at desc.
func (r *UpdateRepository) ListByUser(ctx context.Context, userID int, onlyImportant bool, limit int) ([]model.Update, error) {
	query := `
        SELECT id, user_id, source_id, label, title, summary, discovered_at, is_important
        FROM updates
        WHERE user_id = $1 AND (NOT $2 OR is_important)
        ORDER BY discovered_at DESC
        LIMIT $3
    `
	rows, err := r.db.Query(ctx, query, userID, onlyImportant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := []model.Update{}
	for rows.Next() {
		var u model.Update
		err := rows.Scan(
			&u.ID,
			&u.UserID,
			&u.SourceID,
			&u.Label,
			&u.Title,
			&u.Summary,
			&u.DiscoveredAt,
			&u.IsImportant,
		)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// LowerImportance hides an update owned by userID. The SQL ANDs the current
// flag with FALSE so visibility can never be raised through this path; the
// VISIBLE -> HIDDEN transition is one-way.
func (r *UpdateRepository) LowerImportance(ctx context.Context, updateID int64, userID int) error {
	query := `
        UPDATE updates
        SET is_important = FALSE
        WHERE id = $1 AND user_id = $2
    `
	tag, err := r.db.Exec(ctx, query, updateID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Exists reports whether an update exists and belongs to userID.
func (r *UpdateRepository) Exists(ctx context.Context, updateID int64, userID int) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM updates WHERE id = $1 AND user_id = $2
        )
    `
	var exists bool
	err := r.db.QueryRow(ctx, query, updateID, userID).Scan(&exists)
	return exists, err
}
