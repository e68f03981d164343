// AngelaMos | 2026
// repository_test.go

package generation

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/prompt"
)

var generationRowColumns = []string{
	"id", "user_id", "screenshot_url", "brief_summary", "target_audience",
	"copies", "credits_used", "prompt_version", "created_at",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepository_CreateStoresJSONColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO generations")).
		WithArgs("gen-1", "user-1", "https://cdn.test/a.png", "App: A, Feature: B",
			[]byte(`{"age_range":"25-34","occupation":"designers","pain_point":"time"}`),
			sqlmock.AnyArg(), 1, prompt.Version).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	g := &Generation{
		ID:             "gen-1",
		UserID:         "user-1",
		ScreenshotURL:  "https://cdn.test/a.png",
		BriefSummary:   "App: A, Feature: B",
		TargetAudience: AudienceColumn{AgeRange: "25-34", Occupation: "designers", PainPoint: "time"},
		Copies:         fiveCopies(),
		CreditsUsed:    1,
		PromptVersion:  prompt.Version,
	}
	require.NoError(t, repo.Create(context.Background(), g))
	assert.Equal(t, now, g.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateFailureIsStorageError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO generations")).
		WillReturnError(errors.New("connection reset by peer"))

	err := repo.Create(context.Background(), &Generation{ID: "gen-1", Copies: fiveCopies()})
	assert.ErrorIs(t, err, core.ErrStorage)
}

func TestRepository_GetByIDDecodesJSON(t *testing.T) {
	repo, mock := newMockRepo(t)

	copies := `[{"index":0,"headline":"H","subtext":"S","style":"bold","psychological_trigger":"FOMO","reasoning":"R"}]`
	mock.ExpectQuery(regexp.QuoteMeta("FROM generations WHERE id = $1")).
		WithArgs("gen-1").
		WillReturnRows(sqlmock.NewRows(generationRowColumns).AddRow(
			"gen-1", "user-1", "https://cdn.test/a.png", "summary",
			[]byte(`{"age_range":"18-24","occupation":"students","pain_point":"exams"}`),
			[]byte(copies), 1, prompt.Version, time.Now(),
		))

	g, err := repo.GetByID(context.Background(), "gen-1")
	require.NoError(t, err)
	require.Len(t, g.Copies, 1)
	assert.Equal(t, "FOMO", g.Copies[0].Trigger)
	assert.Equal(t, "students", g.TargetAudience.Occupation)
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM generations WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(generationRowColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
