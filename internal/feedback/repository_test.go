// AngelaMos | 2026
// repository_test.go

package feedback

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_UpsertReportsUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))
	created := time.Now().Add(-time.Hour)
	updated := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (generation_id, copy_index, user_id)")).
		WithArgs(sqlmock.AnyArg(), genID, 2, "user-1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).
			AddRow("fb-1", created, updated, false))

	f := &Feedback{GenerationID: genID, CopyIndex: 2, UserID: "user-1", Rating: 3}
	require.NoError(t, repo.Upsert(context.Background(), f))

	assert.Equal(t, "fb-1", f.ID)
	assert.False(t, f.Inserted)
	assert.True(t, f.UpdatedAt.After(f.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
