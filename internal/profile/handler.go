// AngelaMos | 2026
// handler.go

package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/credit"
	"github.com/carterperez-dev/copystudio/internal/middleware"
)

const defaultTransactionLimit = 20

// Accounts is the slice of the ledger the account view reads from.
type Accounts interface {
	GetProfile(ctx context.Context, userID string) (*credit.Profile, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]credit.Transaction, error)
}

type Handler struct {
	accounts Accounts
}

func NewHandler(accounts Accounts) *Handler {
	return &Handler{accounts: accounts}
}

// RegisterRoutes expects r to already sit behind the authenticator.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.GetMe)
	r.Get("/me/transactions", h.ListTransactions)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	p, err := h.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "profile")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToProfileResponse(p))
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit := core.QueryInt(r, "limit", defaultTransactionLimit)

	txs, err := h.accounts.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToTransactionResponseList(txs))
}
