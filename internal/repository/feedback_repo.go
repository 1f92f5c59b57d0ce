package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aviralsaxena16/Campus-Companion/internal/model"
)

type FeedbackRepository struct {
	db *pgxpool.Pool
}

func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Insert records a feedback audit row.
func (r *FeedbackRepository) Insert(ctx context.Context, f *model.Feedback) error {
	query := `
        INSERT INTO feedback (update_id, is_correct, created_at)
        VALUES ($1, $2, NOW())
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query, f.UpdateID, f.IsCorrect).Scan(&f.ID, &f.CreatedAt)
}
