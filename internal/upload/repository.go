// AngelaMos | 2026
// repository.go

package upload

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/copystudio/internal/core"
)

type Repository interface {
	Create(ctx context.Context, u *Upload) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *Upload) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	query := `
		INSERT INTO screenshot_uploads (id, user_id, file_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &u.CreatedAt, query,
		u.ID, u.UserID, u.FileKey, u.ContentType, u.SizeBytes)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("record upload: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("record upload: %w", err)
	}

	return nil
}
