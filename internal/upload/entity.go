// AngelaMos | 2026
// entity.go

package upload

import (
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/copystudio/internal/core"
)

const (
	MaxUploadBytes   = 5 * 1024 * 1024
	DefaultExtension = "png"
)

var ErrInvalidUpload = fmt.Errorf("invalid upload: %w", core.ErrInvalidInput)

// Slot is a single-use, server-named location the client writes to directly.
type Slot struct {
	UploadURL string
	FileKey   string
	PublicURL string
}

type Upload struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	FileKey     string    `db:"file_key"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	CreatedAt   time.Time `db:"created_at"`
}

func IsInvalidUpload(err error) bool {
	return errors.Is(err, ErrInvalidUpload)
}
