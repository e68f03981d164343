// AngelaMos | 2026
// entity.go

package feedback

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Feedback struct {
	ID           string    `db:"id"`
	GenerationID string    `db:"generation_id"`
	CopyIndex    int       `db:"copy_index"`
	UserID       string    `db:"user_id"`
	Rating       int       `db:"rating"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	Inserted     bool      `db:"inserted"`
}
