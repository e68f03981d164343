// AngelaMos | 2026
// dto.go

package profile

import (
	"time"

	"github.com/carterperez-dev/copystudio/internal/credit"
)

type ProfileResponse struct {
	UserID        string    `json:"user_id"`
	PlanTier      string    `json:"plan_tier"`
	CreditBalance int       `json:"credit_balance"`
	CreatedAt     time.Time `json:"created_at"`
}

type TransactionResponse struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	CreditsDelta    int       `json:"credits_delta"`
	BalanceAfter    int       `json:"balance_after"`
	AmountPaidCents int64     `json:"amount_paid_cents,omitempty"`
	Currency        string    `json:"currency,omitempty"`
	Reference       string    `json:"reference"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToProfileResponse(p *credit.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:        p.UserID,
		PlanTier:      p.PlanTier,
		CreditBalance: p.CreditBalance,
		CreatedAt:     p.CreatedAt,
	}
}

func ToTransactionResponseList(txs []credit.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, TransactionResponse{
			ID:              t.ID,
			Kind:            t.Kind,
			CreditsDelta:    t.CreditsDelta,
			BalanceAfter:    t.BalanceAfter,
			AmountPaidCents: t.AmountPaidCents,
			Currency:        t.Currency,
			Reference:       t.Reference,
			Note:            t.Note,
			CreatedAt:       t.CreatedAt,
		})
	}
	return out
}
