// AngelaMos | 2026
// repository_test.go

package credit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/copystudio/internal/core"
)

var (
	debitSQL  = regexp.QuoteMeta("UPDATE profiles SET credit_balance = credit_balance - $2")
	creditSQL = regexp.QuoteMeta("UPDATE profiles SET credit_balance = credit_balance + $2")
	auditSQL  = regexp.QuoteMeta("INSERT INTO credit_transactions")
	createSQL = regexp.QuoteMeta("INSERT INTO profiles (user_id, plan_tier, credit_balance)")
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepository_DebitWritesAuditInSameTx(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(debitSQL).
		WithArgs("user-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}).AddRow(2))
	mock.ExpectQuery(auditSQL).
		WithArgs(sqlmock.AnyArg(), "user-1", KindGeneration, -1, 2, int64(0), "",
			"generation:gen-1", "", StatusCompleted, "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	balance, err := repo.Debit(context.Background(), "user-1", 1, "generation:gen-1")
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DebitInsufficientHasNoSideEffects(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(debitSQL).
		WithArgs("user-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}))
	mock.ExpectRollback()

	_, err := repo.Debit(context.Background(), "user-1", 1, "generation:gen-1")
	assert.ErrorIs(t, err, core.ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreditReplayRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(creditSQL).
		WithArgs("user-1", 50, true, PlanPro).
		WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}).AddRow(53))
	mock.ExpectQuery(auditSQL).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectRollback()

	_, err := repo.Credit(context.Background(), Entry{
		UserID:          "user-1",
		Kind:            KindPurchase,
		Credits:         50,
		Reference:       "cs_test_123",
		AmountPaidCents: 900,
		Currency:        "usd",
		PriceID:         "price_small",
		UpgradePlan:     true,
	})
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreditMissingProfile(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(creditSQL).
		WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}))
	mock.ExpectRollback()

	_, err := repo.Credit(context.Background(), Entry{
		UserID:    "ghost",
		Kind:      KindRefund,
		Credits:   1,
		Reference: "refund:gen-1",
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateProfileWithBonus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(createSQL).
		WithArgs("user-1", PlanFree, 3).
		WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}).AddRow(3))
	mock.ExpectQuery(auditSQL).
		WithArgs(sqlmock.AnyArg(), "user-1", KindSignupBonus, 3, 3, int64(0), "",
			"signup:user-1", "", StatusCompleted, "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	created, err := repo.CreateProfile(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateProfileExisting(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(createSQL).
		WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}))
	mock.ExpectCommit()

	created, err := repo.CreateProfile(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetProfileNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
