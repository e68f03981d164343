// AngelaMos | 2026
// service.go

package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/metrics"
)

const maxTransactionPage = 100

type Ledger struct {
	repo        Repository
	signupBonus int
	metrics     metrics.Recorder
	logger      *slog.Logger
}

func NewLedger(repo Repository, signupBonus int, rec metrics.Recorder) *Ledger {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Ledger{
		repo:        repo,
		signupBonus: signupBonus,
		metrics:     rec,
		logger:      slog.Default(),
	}
}

// OpenAccount is safe to call on every request; only the first call for a
// user creates the profile and grants the signup bonus.
func (l *Ledger) OpenAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("open account: %w", core.ErrUnauthorized)
	}

	created, err := l.repo.CreateProfile(ctx, userID, l.signupBonus)
	if err != nil {
		return err
	}

	if created {
		l.logger.Info("profile created",
			"user_id", userID,
			"signup_bonus", l.signupBonus,
		)
		if l.signupBonus > 0 {
			l.metrics.RecordCreditMovement(KindSignupBonus, l.signupBonus)
		}
	}

	return nil
}

func (l *Ledger) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("get profile: %w", core.ErrUnauthorized)
	}
	return l.repo.GetProfile(ctx, userID)
}

func (l *Ledger) GetBalance(ctx context.Context, userID string) (int, error) {
	p, err := l.GetProfile(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.CreditBalance, nil
}

func (l *Ledger) TryDebit(
	ctx context.Context,
	userID string,
	amount int,
	reference string,
) (int, error) {
	if amount < 1 {
		return 0, fmt.Errorf("debit: amount %d: %w", amount, core.ErrInvalidInput)
	}

	balance, err := l.repo.Debit(ctx, userID, amount, reference)
	if err != nil {
		return 0, err
	}

	l.metrics.RecordCreditMovement(KindGeneration, amount)
	return balance, nil
}

// Credit provisions purchased credits. A replayed payment reference returns
// ErrAlreadyProcessed and leaves the balance untouched.
func (l *Ledger) Credit(ctx context.Context, userID string, p Purchase) (int, error) {
	if p.Credits < 1 || p.PaymentReference == "" {
		return 0, fmt.Errorf("credit purchase: %w", core.ErrDataIncomplete)
	}

	balance, err := l.repo.Credit(ctx, Entry{
		UserID:          userID,
		Kind:            KindPurchase,
		Credits:         p.Credits,
		Reference:       p.PaymentReference,
		AmountPaidCents: p.AmountPaidCents,
		Currency:        p.Currency,
		PriceID:         p.PriceID,
		UpgradePlan:     true,
	})
	if errors.Is(err, core.ErrNotFound) {
		return 0, fmt.Errorf("credit purchase: no profile for %s: %w", userID, core.ErrDataIncomplete)
	}
	if err != nil {
		return 0, err
	}

	l.metrics.RecordCreditMovement(KindPurchase, p.Credits)
	return balance, nil
}

// Refund reverses a debit. Refunding the same reference twice is a no-op.
func (l *Ledger) Refund(
	ctx context.Context,
	userID string,
	amount int,
	reference string,
) (int, error) {
	balance, err := l.repo.Credit(ctx, Entry{
		UserID:    userID,
		Kind:      KindRefund,
		Credits:   amount,
		Reference: reference,
	})
	if errors.Is(err, core.ErrAlreadyProcessed) {
		l.logger.Info("refund already applied", "user_id", userID, "reference", reference)
		return l.GetBalance(ctx, userID)
	}
	if err != nil {
		return 0, err
	}

	l.metrics.RecordCreditMovement(KindRefund, amount)
	return balance, nil
}

func (l *Ledger) Grant(
	ctx context.Context,
	userID string,
	amount int,
	reference, note string,
) (int, error) {
	if amount < 1 {
		return 0, fmt.Errorf("grant: amount %d: %w", amount, core.ErrInvalidInput)
	}

	balance, err := l.repo.Credit(ctx, Entry{
		UserID:    userID,
		Kind:      KindGrant,
		Credits:   amount,
		Reference: reference,
		Note:      note,
	})
	if err != nil {
		return 0, err
	}

	l.metrics.RecordCreditMovement(KindGrant, amount)
	return balance, nil
}

func (l *Ledger) ListTransactions(
	ctx context.Context,
	userID string,
	limit int,
) ([]Transaction, error) {
	if limit < 1 || limit > maxTransactionPage {
		limit = maxTransactionPage
	}
	return l.repo.ListTransactions(ctx, userID, limit)
}

func (l *Ledger) Summary(ctx context.Context) (*Summary, error) {
	return l.repo.Summary(ctx)
}
