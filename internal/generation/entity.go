// AngelaMos | 2026
// entity.go

package generation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/copystudio/internal/completion"
	"github.com/carterperez-dev/copystudio/internal/prompt"
)

type Generation struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	ScreenshotURL  string         `db:"screenshot_url"`
	BriefSummary   string         `db:"brief_summary"`
	TargetAudience AudienceColumn `db:"target_audience"`
	Copies         Copies         `db:"copies"`
	CreditsUsed    int            `db:"credits_used"`
	PromptVersion  string         `db:"prompt_version"`
	CreatedAt      time.Time      `db:"created_at"`
}

// Result is what a successful generate call returns, and what an
// idempotent replay returns again.
type Result struct {
	GenerationID string            `json:"generation_id"`
	Copies       []completion.Copy `json:"copies"`
	CreditsUsed  int               `json:"credits_used"`
	Balance      int               `json:"balance"`
	CreatedAt    time.Time         `json:"created_at"`
	Replayed     bool              `json:"-"`
}

type Copies []completion.Copy

func (c Copies) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *Copies) Scan(src any) error {
	return scanJSON(src, c)
}

type AudienceColumn prompt.Audience

func (a AudienceColumn) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AudienceColumn) Scan(src any) error {
	return scanJSON(src, a)
}

func scanJSON(src, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan jsonb: unsupported type %T", src)
	}
	if len(raw) == 0 {
		return errors.New("scan jsonb: empty value")
	}
	return json.Unmarshal(raw, dst)
}
