// AngelaMos | 2026
// repository.go

package generation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/copystudio/internal/core"
)

type Repository interface {
	Create(ctx context.Context, g *Generation) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Generation, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const generationColumns = `id, user_id, screenshot_url, brief_summary, target_audience,
	copies, credits_used, prompt_version, created_at`

func (r *repository) Create(ctx context.Context, g *Generation) error {
	query := `
		INSERT INTO generations (
			id, user_id, screenshot_url, brief_summary, target_audience,
			copies, credits_used, prompt_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &g.CreatedAt, query,
		g.ID,
		g.UserID,
		g.ScreenshotURL,
		g.BriefSummary,
		g.TargetAudience,
		g.Copies,
		g.CreditsUsed,
		g.PromptVersion,
	)
	if err != nil {
		return fmt.Errorf("create generation: %w: %w", core.ErrStorage, err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1`

	var g Generation
	if err := r.db.GetContext(ctx, &g, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get generation %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("get generation %s: %w", id, err)
	}

	return &g, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]Generation, error) {
	query := `SELECT ` + generationColumns + `
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var gens []Generation
	if err := r.db.SelectContext(ctx, &gens, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	return gens, nil
}

func (r *repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM generations WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return n, nil
}
