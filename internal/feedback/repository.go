// AngelaMos | 2026
// repository.go

package feedback

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/copystudio/internal/core"
)

type Repository interface {
	Upsert(ctx context.Context, f *Feedback) error
	ListByGeneration(ctx context.Context, generationID, userID string) ([]Feedback, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Upsert keeps one row per (generation, copy, user); the latest rating wins.
// Inserted reports whether the row is new.
func (r *repository) Upsert(ctx context.Context, f *Feedback) error {
	query := `
		INSERT INTO copy_feedback (id, generation_id, copy_index, user_id, rating)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (generation_id, copy_index, user_id)
		DO UPDATE SET rating = EXCLUDED.rating, updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

	err := r.db.QueryRowxContext(ctx, query,
		uuid.New().String(),
		f.GenerationID,
		f.CopyIndex,
		f.UserID,
		f.Rating,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt, &f.Inserted)
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}

	return nil
}

func (r *repository) ListByGeneration(
	ctx context.Context,
	generationID, userID string,
) ([]Feedback, error) {
	query := `
		SELECT id, generation_id, copy_index, user_id, rating, created_at, updated_at
		FROM copy_feedback
		WHERE generation_id = $1 AND user_id = $2
		ORDER BY copy_index`

	var out []Feedback
	if err := r.db.SelectContext(ctx, &out, query, generationID, userID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return out, nil
}
