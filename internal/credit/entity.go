// AngelaMos | 2026
// entity.go

package credit

import (
	"time"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

const (
	KindSignupBonus = "signup_bonus"
	KindGeneration  = "generation"
	KindRefund      = "refund"
	KindPurchase    = "purchase"
	KindGrant       = "grant"
)

const StatusCompleted = "completed"

type Profile struct {
	UserID        string    `db:"user_id"`
	PlanTier      string    `db:"plan_tier"`
	CreditBalance int       `db:"credit_balance"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Transaction is one append-only ledger row. Every balance change writes
// exactly one, in the same database transaction as the change.
type Transaction struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	Kind            string    `db:"kind"`
	CreditsDelta    int       `db:"credits_delta"`
	BalanceAfter    int       `db:"balance_after"`
	AmountPaidCents int64     `db:"amount_paid_cents"`
	Currency        string    `db:"currency"`
	Reference       string    `db:"reference"`
	PriceID         string    `db:"price_id"`
	Status          string    `db:"status"`
	Note            string    `db:"note"`
	CreatedAt       time.Time `db:"created_at"`
}

// Entry describes a balance increase. Reference is unique across the
// ledger and is what makes replays harmless.
type Entry struct {
	UserID          string
	Kind            string
	Credits         int
	Reference       string
	AmountPaidCents int64
	Currency        string
	PriceID         string
	Note            string
	UpgradePlan     bool
}

type Purchase struct {
	Credits          int
	AmountPaidCents  int64
	Currency         string
	PaymentReference string
	PriceID          string
}

type Summary struct {
	Profiles           int   `db:"profiles"`
	OutstandingCredits int64 `db:"outstanding_credits"`
	Purchases          int   `db:"purchases"`
	RevenueCents       int64 `db:"revenue_cents"`
	Debits             int   `db:"debits"`
}

func DebitReference(generationID string) string {
	return "generation:" + generationID
}

func RefundReference(generationID string) string {
	return "refund:" + generationID
}
