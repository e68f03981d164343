// AngelaMos | 2026
// repository.go

package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/copystudio/internal/core"
)

type Repository interface {
	CreateProfile(ctx context.Context, userID string, bonus int) (bool, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	Debit(ctx context.Context, userID string, amount int, reference string) (int, error)
	Credit(ctx context.Context, entry Entry) (int, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	Summary(ctx context.Context) (*Summary, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// CreateProfile inserts the profile if it does not exist yet and records
// the signup bonus alongside it. It reports whether a row was created.
func (r *repository) CreateProfile(
	ctx context.Context,
	userID string,
	bonus int,
) (bool, error) {
	created := false

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO profiles (user_id, plan_tier, credit_balance)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO NOTHING
			RETURNING credit_balance`

		var balance int
		err := tx.GetContext(ctx, &balance, query, userID, PlanFree, bonus)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		created = true

		if bonus == 0 {
			return nil
		}

		return insertTransaction(ctx, tx, &Transaction{
			UserID:       userID,
			Kind:         KindSignupBonus,
			CreditsDelta: bonus,
			BalanceAfter: balance,
			Reference:    "signup:" + userID,
		})
	})
	if err != nil {
		return false, fmt.Errorf("create profile: %w", err)
	}

	return created, nil
}

func (r *repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT user_id, plan_tier, credit_balance, created_at, updated_at
		FROM profiles
		WHERE user_id = $1`

	var p Profile
	err := r.db.GetContext(ctx, &p, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get profile: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &p, nil
}

// Debit subtracts amount only while the balance covers it. The guard lives
// in the UPDATE itself so concurrent debits serialize on the row lock.
func (r *repository) Debit(
	ctx context.Context,
	userID string,
	amount int,
	reference string,
) (int, error) {
	var balance int

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			UPDATE profiles
			SET credit_balance = credit_balance - $2, updated_at = NOW()
			WHERE user_id = $1 AND credit_balance >= $2
			RETURNING credit_balance`

		err := tx.GetContext(ctx, &balance, query, userID, amount)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrInsufficientCredits
		}
		if err != nil {
			return err
		}

		return insertTransaction(ctx, tx, &Transaction{
			UserID:       userID,
			Kind:         KindGeneration,
			CreditsDelta: -amount,
			BalanceAfter: balance,
			Reference:    reference,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("debit credits: %w", err)
	}

	return balance, nil
}

// Credit adds credits and writes the audit row keyed by entry.Reference.
// A reference that was already written rolls the whole change back.
func (r *repository) Credit(ctx context.Context, entry Entry) (int, error) {
	var balance int

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			UPDATE profiles
			SET credit_balance = credit_balance + $2,
			    plan_tier = CASE WHEN $3::boolean THEN $4 ELSE plan_tier END,
			    updated_at = NOW()
			WHERE user_id = $1
			RETURNING credit_balance`

		err := tx.GetContext(ctx, &balance, query,
			entry.UserID,
			entry.Credits,
			entry.UpgradePlan,
			PlanPro,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}

		return insertTransaction(ctx, tx, &Transaction{
			UserID:          entry.UserID,
			Kind:            entry.Kind,
			CreditsDelta:    entry.Credits,
			BalanceAfter:    balance,
			AmountPaidCents: entry.AmountPaidCents,
			Currency:        entry.Currency,
			Reference:       entry.Reference,
			PriceID:         entry.PriceID,
			Note:            entry.Note,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("credit %s: %w", entry.Kind, err)
	}

	return balance, nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = StatusCompleted
	}

	query := `
		INSERT INTO credit_transactions (
			id, user_id, kind, credits_delta, balance_after,
			amount_paid_cents, currency, reference, price_id, status, note
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (reference) DO NOTHING
		RETURNING created_at`

	err := tx.GetContext(ctx, &t.CreatedAt, query,
		t.ID,
		t.UserID,
		t.Kind,
		t.CreditsDelta,
		t.BalanceAfter,
		t.AmountPaidCents,
		t.Currency,
		t.Reference,
		t.PriceID,
		t.Status,
		t.Note,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

func (r *repository) ListTransactions(
	ctx context.Context,
	userID string,
	limit int,
) ([]Transaction, error) {
	query := `
		SELECT id, user_id, kind, credits_delta, balance_after,
		       amount_paid_cents, currency, reference, price_id, status, note,
		       created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var txs []Transaction
	if err := r.db.SelectContext(ctx, &txs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return txs, nil
}

func (r *repository) Summary(ctx context.Context) (*Summary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM profiles) AS profiles,
			(SELECT COALESCE(SUM(credit_balance), 0) FROM profiles) AS outstanding_credits,
			(SELECT COUNT(*) FROM credit_transactions WHERE kind = 'purchase') AS purchases,
			(SELECT COALESCE(SUM(amount_paid_cents), 0) FROM credit_transactions
			 WHERE kind = 'purchase') AS revenue_cents,
			(SELECT COUNT(*) FROM credit_transactions WHERE kind = 'generation') AS debits`

	var s Summary
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return nil, fmt.Errorf("ledger summary: %w", err)
	}

	return &s, nil
}
